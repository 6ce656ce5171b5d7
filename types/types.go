package types

import (
	"strconv"

	"github.com/google/uuid"
)

// Chunk is a bounded slice of a source document stored in the vector index.
// Immutable once created.
type Chunk struct {
	ID        uuid.UUID
	Source    string
	Index     int
	Content   string
	Embedding []float32
}

// NewChunkID derives a stable ID from source and position, so re-ingesting
// an unchanged file upserts the same rows instead of duplicating them.
func NewChunkID(source string, index int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(source+"#"+strconv.Itoa(index)))
}

// RetrievalResult is a chunk with its similarity score, produced per query
// and discarded after prompt assembly.
type RetrievalResult struct {
	Chunk Chunk
	Score float64
}
