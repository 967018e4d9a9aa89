// Package pagination implements opaque cursors over sequence-ordered items.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor points just past the last item of a page
type Cursor struct {
	AfterSeq  int64
	Timestamp time.Time
}

// PageResult represents a paginated result set
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

// EncodeCursor creates a URL-safe cursor from the last item's sequence number and timestamp
func EncodeCursor(seq int64, timestamp time.Time) string {
	if seq <= 0 {
		return ""
	}
	raw := strconv.FormatInt(seq, 10) + "|" + timestamp.UTC().Format(time.RFC3339Nano)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor returns nil for an empty cursor
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidCursor
	}

	seq, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || seq <= 0 {
		return nil, ErrInvalidCursor
	}
	timestamp, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{AfterSeq: seq, Timestamp: timestamp}, nil
}

// NormalizeLimit clamps limit into [1, MaxLimit], using DefaultLimit for non-positive values
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Paginate returns the page of items that follows cursor. items must be sorted
// by ascending sequence number.
func Paginate[T any](items []T, cursor *Cursor, limit int, key func(T) (int64, time.Time)) PageResult[T] {
	limit = NormalizeLimit(limit)

	start := 0
	if cursor != nil {
		for start < len(items) {
			seq, _ := key(items[start])
			if seq > cursor.AfterSeq {
				break
			}
			start++
		}
	}

	end := start + limit
	if end > len(items) {
		end = len(items)
	}

	page := PageResult[T]{Items: append([]T(nil), items[start:end]...)}
	if page.Items == nil {
		page.Items = []T{}
	}
	if end < len(items) {
		seq, ts := key(items[end-1])
		page.Cursor = EncodeCursor(seq, ts)
		page.HasMore = true
	}
	return page
}
