package outline

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Comment is one entry of a segment's append-only comment log.
type Comment struct {
	Content   string `json:"content"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// CommentList is the normalized representation of the segment comment column.
// Older rows stored the column as NULL or as a bare string; current rows store
// a JSON array of comment objects. Decoding accepts all three shapes and
// always yields an ordered list, so call sites never branch on the raw type.
type CommentList []Comment

// UnmarshalJSON normalizes the historical column shapes into a list.
func (c *CommentList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*c = nil
		return nil
	case string:
		// Legacy single-string comment: wrap it as one entry.
		if v == "" {
			*c = nil
			return nil
		}
		*c = CommentList{{
			Content:   v,
			Username:  "Unknown",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}}
		return nil
	case []any:
		var list []Comment
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("decode comment list: %w", err)
		}
		*c = list
		return nil
	default:
		return fmt.Errorf("unsupported comment shape %T", raw)
	}
}

// Scan implements sql.Scanner so pgx can read the jsonb column directly.
func (c *CommentList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return c.UnmarshalJSON(v)
	case string:
		return c.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported comment source %T", src)
	}
}

// Value implements driver.Valuer; empty lists are stored as NULL.
func (c CommentList) Value() (driver.Value, error) {
	if len(c) == 0 {
		return nil, nil
	}
	return json.Marshal([]Comment(c))
}
