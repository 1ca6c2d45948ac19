package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Chunk is a bounded, paragraph-aligned slice of a document's text.
type Chunk struct {
	ID         string
	DocID      string
	Text       string
	Embedding  []float32
	OrderIndex int
	SourceName string
}

// ChunkID returns the store identity of the ordinal-th chunk of a document.
func ChunkID(docID string, ordinal int) string {
	return docID + "_" + strconv.Itoa(ordinal)
}

// ParseChunkID splits a chunk identity back into document id and ordinal.
func ParseChunkID(id string) (string, int, error) {
	i := strings.LastIndex(id, "_")
	if i <= 0 || i == len(id)-1 {
		return "", 0, fmt.Errorf("malformed chunk id %q", id)
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed chunk id %q: %w", id, err)
	}
	return id[:i], n, nil
}
