package memory

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

// Chunk is one retrievable unit of semantic memory.
// Chunks are immutable once indexed.
type Chunk struct {
	// ID is the chunk identifier assigned at index time.
	ID string

	// SourceID names the origin: a log entry reference or an ingested
	// file path.
	SourceID string

	// Text is the raw chunk text.
	Text string

	// Embedding is the fixed-dimension vector for similarity search.
	Embedding []float32

	// CreatedAt is when the chunk was first indexed.
	CreatedAt time.Time
}

// Result pairs a retrieved chunk with its cosine similarity to the query.
type Result struct {
	Chunk      Chunk
	Similarity float32
}

// Embedder converts text to vector embeddings. The index treats it as a
// black box: it may be a local model, a mock, or a precomputed service.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// VectorStore is the nearest-neighbor backend.
// Query may run concurrently with Add; Add must be serialized by the caller.
type VectorStore interface {
	// Add stores a chunk with its embedding already set.
	Add(ctx context.Context, chunk Chunk) error

	// Query returns up to k chunks sorted by descending similarity.
	Query(ctx context.Context, embedding []float32, k int) ([]Result, error)

	// Close releases resources.
	Close() error
}

// Catalog is the durable record of what has been indexed: chunk rows plus
// the content-hash and file-hash dedup tables.
type Catalog interface {
	// SeenChunk reports whether a content hash was indexed before, and the
	// id of the chunk it produced.
	SeenChunk(ctx context.Context, hash string) (string, bool, error)

	// RecordChunk persists a chunk row under its content hash.
	RecordChunk(ctx context.Context, hash string, chunk Chunk) error

	// SeenFile reports whether a whole-file content hash was ingested before.
	SeenFile(ctx context.Context, hash string) (bool, error)

	// RecordFile marks a whole-file content hash as ingested.
	RecordFile(ctx context.Context, hash string, path string) error

	// Chunks returns every recorded chunk, oldest first. Used to rehydrate
	// a vector store on startup.
	Chunks(ctx context.Context) ([]Chunk, error)

	// Close releases resources.
	Close() error
}

// IndexError describes an embedding or retrieval failure. Exchanges abort
// on IndexError before any log write happens.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("memory index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// ContentHash fingerprints text within a source scope. Duplicate detection
// uses this hash rather than vector equality, so floating-point noise in
// embeddings can never produce a false negative.
func ContentHash(sourceID, text string) string {
	h := sha1.New()
	h.Write([]byte(sourceID))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// FileHash fingerprints a whole file's content for ingest dedup.
func FileHash(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
