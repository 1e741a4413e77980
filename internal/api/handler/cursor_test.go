package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casthq/outreach-core/internal/sendqueue"
)

func TestQueueCursor_RoundTrip(t *testing.T) {
	in := &sendqueue.Cursor{
		CreatedAt: time.Date(2025, 3, 10, 15, 4, 5, 123456789, time.UTC),
		ItemID:    "item-1",
	}

	encoded := EncodeQueueCursor(in)
	out, err := DecodeQueueCursor(encoded)
	require.NoError(t, err)

	assert.Equal(t, in.ItemID, out.ItemID)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
}

func TestDecodeQueueCursor(t *testing.T) {
	t.Run("empty string means from the top", func(t *testing.T) {
		cursor, err := DecodeQueueCursor("")
		require.NoError(t, err)
		assert.Nil(t, cursor)
	})

	tests := []struct {
		name string
		in   string
	}{
		{name: "not base64", in: "!!definitely-not-base64!!"},
		{name: "no separator", in: "MTIzNDU2"},               // "123456"
		{name: "non-numeric timestamp", in: "YWJjfGl0ZW0="}, // "abc|item"
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeQueueCursor(tt.in)
			require.Error(t, err)
		})
	}
}
