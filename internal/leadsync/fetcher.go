package leadsync

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Row is one parsed spreadsheet row, keyed by normalized header
type Row map[string]string

// SourceFetcher pulls lead rows from an external source
type SourceFetcher interface {
	Fetch(ctx context.Context, sourceURL string) ([]Row, error)
}

// CSVFetcher fetches a spreadsheet CSV export over HTTP. It uses a
// real quoted-field CSV parser: line endings mixed inside quoted
// fields (CR, LF, CRLF) are data, not row separators. Naive newline
// splitting has under/over-counted rows here before.
type CSVFetcher struct {
	client *http.Client
}

// NewCSVFetcher creates a fetcher with a per-request timeout
func NewCSVFetcher(timeout time.Duration) *CSVFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &CSVFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads and parses the CSV export at sourceURL
func (f *CSVFetcher) Fetch(ctx context.Context, sourceURL string) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build source request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	return ParseRows(resp.Body)
}

// ParseRows parses CSV content into rows keyed by normalized header
func ParseRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+2, err)
		}

		row := make(Row, len(keys))
		empty := true
		for i, value := range record {
			if i >= len(keys) || keys[i] == "" {
				continue
			}
			value = strings.TrimSpace(value)
			row[keys[i]] = value
			if value != "" {
				empty = false
			}
		}

		if empty {
			continue
		}

		rows = append(rows, row)
	}

	return rows, nil
}
