package memory_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alterego-local/alterego/memory"
	"github.com/alterego-local/alterego/memory/embedder/mock"
	"github.com/alterego-local/alterego/memory/store/chromem"
	"github.com/alterego-local/alterego/memory/store/sqlite"
)

func newTestIndex(t *testing.T) *memory.Index {
	t.Helper()

	store, err := chromem.New()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	catalog, err := sqlite.Open(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}

	config := &memory.Config{
		TopK:          5,
		MinSimilarity: -1, // mock embeddings have no real semantic structure
		CacheCapacity: 1 << 20,
	}
	ix, err := memory.NewIndex(context.Background(), store, catalog, mock.New(64), config)
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestIndex_IdempotentPerSource(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	first, err := ix.Index(ctx, "the hallway light hums at night", "journal.txt")
	if err != nil {
		t.Fatalf("first Index failed: %v", err)
	}
	second, err := ix.Index(ctx, "the hallway light hums at night", "journal.txt")
	if err != nil {
		t.Fatalf("second Index failed: %v", err)
	}
	if first != second {
		t.Errorf("identical text and source produced two chunks: %s vs %s", first, second)
	}

	// Same text under a different source is a distinct chunk.
	other, err := ix.Index(ctx, "the hallway light hums at night", "notes.md")
	if err != nil {
		t.Fatalf("Index with new source failed: %v", err)
	}
	if other == first {
		t.Error("different source should not reuse the chunk id")
	}
}

func TestIndex_QueryBoundedAndOrdered(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	for i := 0; i < 8; i++ {
		text := fmt.Sprintf("memory fragment number %d about quiet evenings", i)
		if _, err := ix.Index(ctx, text, "journal.txt"); err != nil {
			t.Fatalf("Index #%d failed: %v", i, err)
		}
	}

	for _, k := range []int{1, 3, 8, 20} {
		results, err := ix.Query(ctx, "quiet evenings", k)
		if err != nil {
			t.Fatalf("Query(k=%d) failed: %v", k, err)
		}
		if len(results) > k {
			t.Errorf("Query(k=%d) returned %d results", k, len(results))
		}
		for i := 1; i < len(results); i++ {
			if results[i].Similarity > results[i-1].Similarity {
				t.Errorf("Query(k=%d) results not non-increasing at #%d: %f > %f",
					k, i, results[i].Similarity, results[i-1].Similarity)
			}
		}
	}
}

func TestIndex_RehydratesFromCatalog(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "memory.db")
	config := &memory.Config{TopK: 5, MinSimilarity: -1, CacheCapacity: 1 << 20}

	// First index writes chunks through to the catalog.
	store1, err := chromem.New()
	if err != nil {
		t.Fatal(err)
	}
	catalog1, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	ix1, err := memory.NewIndex(ctx, store1, catalog1, mock.New(64), config)
	if err != nil {
		t.Fatal(err)
	}
	wantID, err := ix1.Index(ctx, "a remembered phrase", "session")
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if err := ix1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A fresh in-memory vector store starts empty; the catalog refills it.
	store2, err := chromem.New()
	if err != nil {
		t.Fatal(err)
	}
	catalog2, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	ix2, err := memory.NewIndex(ctx, store2, catalog2, mock.New(64), config)
	if err != nil {
		t.Fatal(err)
	}
	defer ix2.Close()

	results, err := ix2.Query(ctx, "a remembered phrase", 1)
	if err != nil {
		t.Fatalf("Query after rehydrate failed: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.ID != wantID {
		t.Errorf("rehydrated query = %+v, want chunk %s", results, wantID)
	}

	// Dedup state survives the restart too.
	again, err := ix2.Index(ctx, "a remembered phrase", "session")
	if err != nil {
		t.Fatalf("re-Index after rehydrate failed: %v", err)
	}
	if again != wantID {
		t.Errorf("re-Index created a new chunk %s, want %s", again, wantID)
	}
}

func TestIndex_FileDedup(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	hash := memory.FileHash([]byte("same bytes in two files"))
	seen, err := ix.FileSeen(ctx, hash)
	if err != nil {
		t.Fatalf("FileSeen failed: %v", err)
	}
	if seen {
		t.Fatal("hash should be unseen before MarkFile")
	}
	if err := ix.MarkFile(ctx, hash, "/tmp/a.txt"); err != nil {
		t.Fatalf("MarkFile failed: %v", err)
	}
	seen, err = ix.FileSeen(ctx, hash)
	if err != nil {
		t.Fatalf("FileSeen failed: %v", err)
	}
	if !seen {
		t.Error("hash should be seen after MarkFile")
	}
	// Second mark under another path must not error.
	if err := ix.MarkFile(ctx, hash, "/tmp/b.txt"); err != nil {
		t.Errorf("MarkFile on duplicate hash failed: %v", err)
	}
}
