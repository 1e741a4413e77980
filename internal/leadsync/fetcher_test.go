package leadsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRows(t *testing.T) {
	t.Run("basic rows keyed by normalized header", func(t *testing.T) {
		input := "Email,First Name,Company\njane@example.com,Jane,Acme\nbob@example.com,Bob,Globex\n"

		rows, err := ParseRows(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, "jane@example.com", rows[0]["email"])
		assert.Equal(t, "Jane", rows[0]["first name"])
		assert.Equal(t, "Acme", rows[0]["company"])
		assert.Equal(t, "Globex", rows[1]["company"])
	})

	t.Run("quoted newlines are data not row separators", func(t *testing.T) {
		input := "email,notes\n" +
			"jane@example.com,\"line one\nline two\"\n" +
			"bob@example.com,\"crlf\r\ninside\"\n"

		rows, err := ParseRows(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, "line one\nline two", rows[0]["notes"])
		assert.Contains(t, rows[1]["notes"], "inside")
	})

	t.Run("quoted commas stay in the field", func(t *testing.T) {
		input := "email,company\njane@example.com,\"Acme, Inc.\"\n"

		rows, err := ParseRows(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Acme, Inc.", rows[0]["company"])
	})

	t.Run("empty rows are skipped", func(t *testing.T) {
		input := "email,company\njane@example.com,Acme\n,\n , \nbob@example.com,Globex\n"

		rows, err := ParseRows(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 2)
	})

	t.Run("ragged rows keep the columns that exist", func(t *testing.T) {
		input := "email,company,role\njane@example.com,Acme\n"

		rows, err := ParseRows(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 1)

		assert.Equal(t, "Acme", rows[0]["company"])
		_, ok := rows[0]["role"]
		assert.False(t, ok)
	})

	t.Run("empty input yields no rows", func(t *testing.T) {
		rows, err := ParseRows(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("header only yields no rows", func(t *testing.T) {
		rows, err := ParseRows(strings.NewReader("email,company\n"))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("values are trimmed", func(t *testing.T) {
		input := "email,company\n  jane@example.com  ,  Acme  \n"

		rows, err := ParseRows(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "jane@example.com", rows[0]["email"])
		assert.Equal(t, "Acme", rows[0]["company"])
	})
}

func TestCSVFetcher_Fetch(t *testing.T) {
	t.Run("fetches and parses the export", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("email,company\njane@example.com,Acme\n"))
		}))
		defer srv.Close()

		fetcher := NewCSVFetcher(0)
		rows, err := fetcher.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "jane@example.com", rows[0]["email"])
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		fetcher := NewCSVFetcher(0)
		_, err := fetcher.Fetch(context.Background(), srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("canceled context aborts the fetch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("email\n"))
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		fetcher := NewCSVFetcher(0)
		_, err := fetcher.Fetch(ctx, srv.URL)
		require.Error(t, err)
	})
}
