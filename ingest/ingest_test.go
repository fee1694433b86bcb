package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/alterego-local/alterego/ingest"
	"github.com/alterego-local/alterego/memory"
	"github.com/alterego-local/alterego/memory/embedder/mock"
	"github.com/alterego-local/alterego/memory/store/chromem"
	"github.com/alterego-local/alterego/memory/store/sqlite"
)

func newTestIndex(t *testing.T) *memory.Index {
	t.Helper()
	store, err := chromem.New()
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := sqlite.Open(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatal(err)
	}
	ix, err := memory.NewIndex(context.Background(), store, catalog, mock.New(64),
		&memory.Config{TopK: 5, MinSimilarity: -1, CacheCapacity: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIngest_DuplicateContentSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "the same journal entry about the long walk home")
	writeFile(t, dir, "b.txt", "the same journal entry about the long walk home")

	in := ingest.New(newTestIndex(t), nil)
	stats, err := in.Ingest(context.Background(), dir)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if stats.Indexed != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %d indexed, %d skipped, want 1 and 1", stats.Indexed, stats.Skipped)
	}
}

func TestIngest_RerunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.md", "first note about the stairwell")

	in := ingest.New(newTestIndex(t), nil)
	ctx := context.Background()

	first, err := in.Ingest(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if first.Indexed != 1 {
		t.Fatalf("first run indexed %d, want 1", first.Indexed)
	}

	second, err := in.Ingest(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if second.Indexed != 0 || second.Skipped != 1 {
		t.Errorf("second run = %d indexed, %d skipped, want 0 and 1", second.Indexed, second.Skipped)
	}
}

func TestIngest_FiltersExtensionsAndGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.txt", "kept text")
	writeFile(t, dir, "skip.bin", "binary-ish payload")
	writeFile(t, dir, ".hidden/secret.txt", "hidden tree")
	writeFile(t, dir, "cache.db", "database file")

	in := ingest.New(newTestIndex(t), nil)
	stats, err := in.Ingest(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Indexed != 1 {
		t.Errorf("indexed %d files, want only keep.txt", stats.Indexed)
	}
}

func TestIngest_MissingRootFails(t *testing.T) {
	in := ingest.New(newTestIndex(t), nil)
	if _, err := in.Ingest(context.Background(), filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("missing root should error")
	}
}

func TestIngest_LargeFileChunks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "long.txt", strings.Repeat("a sentence that fills space. ", 200))

	ix := newTestIndex(t)
	in := ingest.New(ix, nil)
	stats, err := in.Ingest(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Indexed != 1 {
		t.Fatalf("indexed %d, want 1", stats.Indexed)
	}

	results, err := ix.Query(context.Background(), "a sentence that fills space", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) < 2 {
		t.Errorf("large file produced %d chunks, want several", len(results))
	}
}

func TestChunks(t *testing.T) {
	short := ingest.Chunks("tiny", 1200, 200)
	if len(short) != 1 || short[0] != "tiny" {
		t.Errorf("short text should be one chunk, got %v", short)
	}

	text := strings.Repeat("x", 3000)
	chunks := ingest.Chunks(text, 1200, 200)
	if len(chunks) < 3 {
		t.Fatalf("3000 chars at 1200/200 gave %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 1200 {
			t.Errorf("chunk %d has %d chars", i, len(c))
		}
	}
	// Consecutive chunks share the overlap region.
	tail := chunks[0][len(chunks[0])-200:]
	if !strings.HasPrefix(chunks[1], tail) {
		t.Error("chunks do not overlap as configured")
	}

	var total strings.Builder
	total.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		total.WriteString(chunks[i][200:])
	}
	if total.String() != text {
		t.Error("reassembled chunks do not reproduce the text")
	}
}

func TestChunks_MultibyteText(t *testing.T) {
	// One leading byte misaligns every two-byte rune, so naive byte cuts
	// would split one at the window edge.
	text := "a" + strings.Repeat("é", 2000)

	chunks := ingest.Chunks(text, 1200, 200)
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if c == "" {
			t.Fatalf("chunk %d is empty", i)
		}
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		if len(c) > 1200 {
			t.Errorf("chunk %d has %d bytes", i, len(c))
		}
	}
	if !strings.HasPrefix(text, chunks[0]) {
		t.Error("first chunk should be a prefix of the text")
	}
	if !strings.HasSuffix(text, chunks[len(chunks)-1]) {
		t.Error("last chunk should be a suffix of the text")
	}
}
