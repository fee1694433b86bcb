package memory

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/oklog/ulid/v2"
)

// Config holds Index tuning knobs.
type Config struct {
	// TopK is the default number of results returned by Query when the
	// caller passes k <= 0.
	TopK int

	// MinSimilarity drops results below this cosine similarity [0.0-1.0].
	// Local embedding models score similar text lower than hosted ones, so
	// the default is permissive.
	MinSimilarity float64

	// CacheCapacity bounds the embedding cache in bytes of vector data.
	CacheCapacity int64
}

// DefaultConfig returns sensible defaults for a local install.
var DefaultConfig = &Config{
	TopK:          5,
	MinSimilarity: 0.0,
	CacheCapacity: 16 << 20,
}

// Index is the semantic memory index. Index mutation is serialized
// internally; Query may run concurrently with itself and with Index.
type Index struct {
	store    VectorStore
	catalog  Catalog
	embedder Embedder
	cache    *ristretto.Cache
	config   *Config
	mu       sync.Mutex // serializes index mutation
}

// NewIndex creates an Index over the given store, catalog and embedder, and
// rehydrates the vector store from the catalog so a restarted process can
// query everything indexed before.
func NewIndex(ctx context.Context, store VectorStore, catalog Catalog, embedder Embedder, config *Config) (*Index, error) {
	if config == nil {
		config = DefaultConfig
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     config.CacheCapacity,
		BufferItems: 64,
	})
	if err != nil {
		return nil, &IndexError{Op: "cache", Err: err}
	}

	ix := &Index{
		store:    store,
		catalog:  catalog,
		embedder: embedder,
		cache:    cache,
		config:   config,
	}

	chunks, err := catalog.Chunks(ctx)
	if err != nil {
		return nil, &IndexError{Op: "rehydrate", Err: err}
	}
	restored := 0
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		if err := store.Add(ctx, chunk); err != nil {
			log.Printf("[MEMORY] Failed to restore chunk %s: %v", chunk.ID, err)
			continue
		}
		restored++
	}
	if restored > 0 {
		log.Printf("[MEMORY] Restored %d chunks from catalog", restored)
	}

	return ix, nil
}

// Index embeds and stores text under the given source id, returning the
// chunk id. It is idempotent per exact-text duplicate within a source scope:
// re-indexing identical text returns the original chunk id without creating
// a second chunk.
func (ix *Index) Index(ctx context.Context, text string, sourceID string) (string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	hash := ContentHash(sourceID, text)
	if id, seen, err := ix.catalog.SeenChunk(ctx, hash); err != nil {
		return "", &IndexError{Op: "dedup lookup", Err: err}
	} else if seen {
		log.Printf("[MEMORY] Duplicate content for source %s, reusing chunk %s", sourceID, id)
		return id, nil
	}

	embedding, err := ix.embed(ctx, text)
	if err != nil {
		return "", &IndexError{Op: "embed", Err: err}
	}

	chunk := Chunk{
		ID:        ulid.Make().String(),
		SourceID:  sourceID,
		Text:      text,
		Embedding: embedding,
		CreatedAt: time.Now().UTC(),
	}

	if err := ix.store.Add(ctx, chunk); err != nil {
		return "", &IndexError{Op: "store", Err: err}
	}
	if err := ix.catalog.RecordChunk(ctx, hash, chunk); err != nil {
		return "", &IndexError{Op: "record", Err: err}
	}

	log.Printf("[MEMORY] Indexed chunk %s (source=%s, %d chars)", chunk.ID, sourceID, len(text))
	return chunk.ID, nil
}

// Query returns at most k chunks relevant to the text, sorted by descending
// similarity. Ties are broken by most recent creation time first.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if k <= 0 {
		k = ix.config.TopK
	}

	embedding, err := ix.embed(ctx, text)
	if err != nil {
		return nil, &IndexError{Op: "embed query", Err: err}
	}

	results, err := ix.store.Query(ctx, embedding, k)
	if err != nil {
		return nil, &IndexError{Op: "query", Err: err}
	}

	filtered := results[:0]
	for _, r := range results {
		if float64(r.Similarity) >= ix.config.MinSimilarity {
			filtered = append(filtered, r)
		}
	}
	results = filtered

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Chunk.CreatedAt.After(results[j].Chunk.CreatedAt)
	})
	if len(results) > k {
		results = results[:k]
	}

	log.Printf("[MEMORY] Query returned %d chunks for %q", len(results), truncate(text, 50))
	return results, nil
}

// FileSeen reports whether a whole file with this content hash was already
// ingested.
func (ix *Index) FileSeen(ctx context.Context, hash string) (bool, error) {
	seen, err := ix.catalog.SeenFile(ctx, hash)
	if err != nil {
		return false, &IndexError{Op: "file dedup lookup", Err: err}
	}
	return seen, nil
}

// MarkFile records a whole-file content hash as ingested.
func (ix *Index) MarkFile(ctx context.Context, hash string, path string) error {
	if err := ix.catalog.RecordFile(ctx, hash, path); err != nil {
		return &IndexError{Op: "file record", Err: err}
	}
	return nil
}

// Close releases the store and catalog.
func (ix *Index) Close() error {
	ix.cache.Close()
	if err := ix.store.Close(); err != nil {
		return err
	}
	return ix.catalog.Close()
}

// embed runs the embedder through the ristretto cache so repeated text
// (retries, duplicate prompts) does not hit the model twice.
func (ix *Index) embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := ix.cache.Get(text); ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	ix.cache.Set(text, vec, int64(len(vec)*4))
	return vec, nil
}

// truncate shortens text for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
