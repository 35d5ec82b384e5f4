// Package syncdoc encodes and decodes the shared remote state document
// (sync.json) that every device reads and rewrites during a sync round.
package syncdoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FileName is the name of the document inside the remote app data folder.
const FileName = "sync.json"

// timestampLayout matches JavaScript's Date.prototype.toISOString output.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// ErrInvalidDocument is returned when the remote payload is not a state document.
var ErrInvalidDocument = errors.New("invalid sync document")

// Entry is the remote reading position of one book.
type Entry struct {
	CFI string `json:"cfi"`
	// TS is the epoch-millisecond timestamp of the change that produced CFI.
	TS int64 `json:"ts"`
}

// Document is the whole remote state. It is always written in full.
type Document struct {
	LastDevice string           `json:"last_device,omitempty"`
	LastSynced string           `json:"last_synced,omitempty"`
	Books      map[string]Entry `json:"books"`
}

// New returns an empty document.
func New() *Document {
	return &Document{Books: make(map[string]Entry)}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		LastDevice: d.LastDevice,
		LastSynced: d.LastSynced,
		Books:      make(map[string]Entry, len(d.Books)),
	}
	for id, e := range d.Books {
		out.Books[id] = e
	}
	return out
}

// Entry returns the entry for bookID and whether it exists.
func (d *Document) Entry(bookID string) (Entry, bool) {
	if d == nil {
		return Entry{}, false
	}
	e, ok := d.Books[bookID]
	return e, ok
}

// SyncedAt parses LastSynced. The zero time is returned when it is unset.
func (d *Document) SyncedAt() (time.Time, error) {
	if d == nil || d.LastSynced == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, d.LastSynced)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last_synced %q: %w", d.LastSynced, err)
	}
	return t, nil
}

// Encode serializes d to its wire form.
func Encode(d *Document) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	out := *d
	if out.Books == nil {
		out.Books = map[string]Entry{}
	}
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sync document: %w", err)
	}
	return data, nil
}

// Decode parses a wire payload. A missing books map decodes as empty.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Books == nil {
		doc.Books = make(map[string]Entry)
	}
	return &doc, nil
}

// FormatTimestamp renders t as UTC with millisecond precision and a Z suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Millis converts t to epoch milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
