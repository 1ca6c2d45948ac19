package domain

import (
	"fmt"
	"strings"
	"time"
)

// Document is an uploaded source whose text has been extracted. Immutable after creation.
type Document struct {
	ID          string
	SourceName  string
	RawText     string
	ObjectKey   string // empty when the original bytes were not stored
	ContentType string
	ChunkCount  int
	CreatedAt   time.Time
}

// NewDocument creates a new Document instance
func NewDocument(id, sourceName, rawText, contentType string, createdAt time.Time) *Document {
	return &Document{
		ID:          id,
		SourceName:  sourceName,
		RawText:     rawText,
		ContentType: contentType,
		CreatedAt:   createdAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if d.SourceName == "" {
		return fmt.Errorf("document SourceName is required")
	}
	if strings.TrimSpace(d.RawText) == "" {
		return ErrEmptyDocument
	}
	return nil
}

// Preview returns the first n runes of the extracted text.
func (d *Document) Preview(n int) string {
	r := []rune(d.RawText)
	if len(r) <= n {
		return d.RawText
	}
	return string(r[:n])
}
