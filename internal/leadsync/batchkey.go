package leadsync

import (
	"fmt"
	"strings"
	"time"
)

// noneToken stands in for a missing client or job-title label
const noneToken = "(none)"

const batchKeyDateLayout = "2006-01-02"

// BuildBatchKey derives the virtual grouping key for a sync row:
// "YYYY-MM-DD|client=<norm>|job=<norm>". The date bucket is computed in
// the tenant-facing calendar (loc), not UTC, so "today" matches the
// business day.
func BuildBatchKey(at time.Time, client, jobTitle string, loc *time.Location) string {
	date := at.In(loc).Format(batchKeyDateLayout)

	return fmt.Sprintf("%s|client=%s|job=%s", date, labelOrNone(client), labelOrNone(jobTitle))
}

// ParseBatchKey recovers the three components of a key produced by
// BuildBatchKey
func ParseBatchKey(key string) (date, client, jobTitle string, err error) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("invalid batch key %q: expected 3 components", key)
	}

	if _, err := time.Parse(batchKeyDateLayout, parts[0]); err != nil {
		return "", "", "", fmt.Errorf("invalid batch key %q: bad date bucket: %w", key, err)
	}

	client, ok := strings.CutPrefix(parts[1], "client=")
	if !ok {
		return "", "", "", fmt.Errorf("invalid batch key %q: missing client component", key)
	}

	jobTitle, ok = strings.CutPrefix(parts[2], "job=")
	if !ok {
		return "", "", "", fmt.Errorf("invalid batch key %q: missing job component", key)
	}

	return parts[0], client, jobTitle, nil
}

// labelOrNone normalizes a label, substituting the none token when the
// normalized value is empty
func labelOrNone(label string) string {
	norm := normalize(label)
	if norm == "" {
		return noneToken
	}
	return norm
}
