package filesystem

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 1

// ErrInvalidCursor indicates the cursor could not be decoded.
var ErrInvalidCursor = fmt.Errorf("%w: filesystem: invalid cursor format", domain.ErrInvalidInput)

// Cursor marks the last asset of a page in listing order.
type Cursor struct {
	// Version is the cursor format version.
	Version int `json:"v"`

	// After is the path of the last asset returned.
	After string `json:"after"`

	// ModTime is the modification time of After in Unix nanoseconds.
	ModTime int64 `json:"t"`
}

// Encode serialises the cursor to a base64 string.
func (c *Cursor) Encode() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserialises a cursor. An empty string is the start of the library.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return &Cursor{Version: CursorVersion}, nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, ErrInvalidCursor
	}
	if cursor.Version != CursorVersion {
		return nil, errors.Join(ErrInvalidCursor, fmt.Errorf("unsupported version %d", cursor.Version))
	}

	return &cursor, nil
}

// IsStart returns true if the cursor points before the newest asset.
func (c *Cursor) IsStart() bool {
	return c.After == ""
}
