// Package chromem backs the memory index with chromem-go, a pure Go
// embedded vector database.
package chromem

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/alterego-local/alterego/memory"
)

const collectionName = "alterego_memory"

// Store implements memory.VectorStore on a single chromem collection.
type Store struct {
	db  *chromem.DB
	col *chromem.Collection
}

// New creates an in-memory store. Contents are lost on restart; the catalog
// rehydrates the collection when the index starts up.
func New() (*Store, error) {
	return open(chromem.NewDB())
}

// NewPersistent creates a store whose collection is persisted under dir.
func NewPersistent(dir string) (*Store, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open persistent db: %w", err)
	}
	return open(db)
}

func open(db *chromem.DB) (*Store, error) {
	// Embeddings are always provided by the index, so no embedding func.
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Store{db: db, col: col}, nil
}

// Add stores a chunk. The chunk's embedding must already be set.
func (s *Store) Add(ctx context.Context, chunk memory.Chunk) error {
	if len(chunk.Embedding) == 0 {
		return fmt.Errorf("chunk %s has no embedding", chunk.ID)
	}

	doc := chromem.Document{
		ID:        chunk.ID,
		Content:   chunk.Text,
		Embedding: chunk.Embedding,
		Metadata: map[string]string{
			"source_id":  chunk.SourceID,
			"created_at": chunk.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if err := s.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Query retrieves up to k chunks by vector similarity.
func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]memory.Result, error) {
	// chromem rejects nResults larger than the collection, so retry with
	// smaller limits until the query fits.
	var raw []chromem.Result
	for limit := k; limit >= 1; limit-- {
		var err error
		raw, err = s.col.QueryEmbedding(ctx, embedding, limit, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if limit == 1 {
				return nil, nil // empty collection
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	results := make([]memory.Result, 0, len(raw))
	for i, r := range raw {
		createdAt, err := time.Parse(time.RFC3339Nano, r.Metadata["created_at"])
		if err != nil {
			log.Printf("[MEMORY] Skipping result #%d with bad created_at: %v", i+1, err)
			continue
		}
		results = append(results, memory.Result{
			Chunk: memory.Chunk{
				ID:        r.ID,
				SourceID:  r.Metadata["source_id"],
				Text:      r.Content,
				Embedding: r.Embedding,
				CreatedAt: createdAt,
			},
			Similarity: r.Similarity,
		})
	}
	return results, nil
}

// Close releases resources. chromem persists on write, nothing to flush.
func (s *Store) Close() error { return nil }

// isInsufficientDocsError matches chromem's error for nResults larger than
// the collection size.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
