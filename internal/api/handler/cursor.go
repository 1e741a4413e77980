package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/casthq/outreach-core/internal/sendqueue"
)

// DecodeQueueCursor parses an opaque listing cursor. An empty string
// means "from the top".
func DecodeQueueCursor(cursorStr string) (*sendqueue.Cursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	if _, err := fmt.Sscanf(parts[0], "%d", &createdAt); err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &sendqueue.Cursor{
		CreatedAt: time.Unix(0, createdAt),
		ItemID:    parts[1],
	}, nil
}

// EncodeQueueCursor renders a cursor as an opaque string
func EncodeQueueCursor(cursor *sendqueue.Cursor) string {
	raw := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.ItemID)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}
