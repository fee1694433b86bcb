// Package ingest feeds external text files into the semantic memory index.
// It runs independently of the dialogue loop: batch over a directory tree,
// or continuously through a filesystem watcher.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/alterego-local/alterego/memory"
)

// Config tunes the ingestor.
type Config struct {
	// AllowedExts are the file extensions read, lower-case with dot.
	AllowedExts []string

	// IgnoreGlobs are path patterns skipped during the walk, matched
	// against the base name and the slash path relative to the root.
	IgnoreGlobs []string

	// ChunkChars is the target chunk size in characters.
	ChunkChars int

	// ChunkOverlap is how many characters consecutive chunks share.
	ChunkOverlap int
}

// DefaultConfig returns the ingestor defaults.
func DefaultConfig() *Config {
	return &Config{
		AllowedExts:  []string{".txt", ".md", ".chaos", ".log"},
		IgnoreGlobs:  []string{".*", "*.db", "*.sqlite"},
		ChunkChars:   1200,
		ChunkOverlap: 200,
	}
}

// Stats summarizes one ingest run.
type Stats struct {
	// Indexed counts files whose content entered the index.
	Indexed int

	// Skipped counts files deduplicated away by content hash.
	Skipped int

	// Warnings counts unreadable files and directories that were passed
	// over without failing the run.
	Warnings int
}

// Indexer is the memory surface the ingestor writes to. *memory.Index
// satisfies it.
type Indexer interface {
	Index(ctx context.Context, text string, sourceID string) (string, error)
	FileSeen(ctx context.Context, hash string) (bool, error)
	MarkFile(ctx context.Context, hash string, path string) error
}

// Ingestor walks directories and indexes text-bearing files.
type Ingestor struct {
	index  Indexer
	config *Config
}

// New creates an ingestor. A nil config uses DefaultConfig.
func New(index Indexer, config *Config) *Ingestor {
	if config == nil {
		config = DefaultConfig()
	}
	if config.ChunkChars <= 0 {
		config.ChunkChars = DefaultConfig().ChunkChars
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkChars {
		config.ChunkOverlap = DefaultConfig().ChunkOverlap
	}
	return &Ingestor{index: index, config: config}
}

// Ingest walks root and indexes every new file. Unreadable files and
// directories are warnings, never fatal; a missing root is the only error.
func (in *Ingestor) Ingest(ctx context.Context, root string) (Stats, error) {
	var stats Stats

	info, err := os.Stat(root)
	if err != nil {
		return stats, fmt.Errorf("ingest root: %w", err)
	}
	if !info.IsDir() {
		return stats, in.ingestFile(ctx, root, &stats)
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("[INGEST] Skipping %s: %v", path, err)
			stats.Warnings++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if in.ignored(root, path) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !in.allowed(path) {
			return nil
		}
		if err := in.ingestFile(ctx, path, &stats); err != nil {
			return err
		}
		return ctx.Err()
	})
	if walkErr != nil {
		return stats, walkErr
	}

	log.Printf("[INGEST] %s: %d indexed, %d skipped, %d warnings",
		root, stats.Indexed, stats.Skipped, stats.Warnings)
	return stats, nil
}

// ingestFile reads, dedups and chunks one file. Whole-file dedup runs on
// the content hash, so two identical files under different names count as
// one indexed and one skipped.
func (in *Ingestor) ingestFile(ctx context.Context, path string, stats *Stats) error {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[INGEST] Skipping unreadable %s: %v", path, err)
		stats.Warnings++
		return nil
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil
	}

	hash := memory.FileHash(data)
	seen, err := in.index.FileSeen(ctx, hash)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", path, err)
	}
	if seen {
		stats.Skipped++
		return nil
	}

	for i, chunk := range Chunks(text, in.config.ChunkChars, in.config.ChunkOverlap) {
		sourceID := fmt.Sprintf("%s#%d", path, i)
		if _, err := in.index.Index(ctx, chunk, sourceID); err != nil {
			return fmt.Errorf("index %s: %w", path, err)
		}
	}
	if err := in.index.MarkFile(ctx, hash, path); err != nil {
		return fmt.Errorf("mark %s: %w", path, err)
	}
	stats.Indexed++
	return nil
}

func (in *Ingestor) allowed(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range in.config.AllowedExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (in *Ingestor) ignored(root, path string) bool {
	base := filepath.Base(path)
	if base == "." || path == root {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = base
	}
	rel = filepath.ToSlash(rel)

	for _, glob := range in.config.IgnoreGlobs {
		if ok, _ := filepath.Match(glob, base); ok {
			return true
		}
		if ok, _ := filepath.Match(glob, rel); ok {
			return true
		}
	}
	return false
}

// Chunks splits text into overlapping windows. Short text yields a single
// chunk; the final window is never empty. Cut points back up to rune
// boundaries so multi-byte text never yields invalid UTF-8 chunks.
func Chunks(text string, size, overlap int) []string {
	if len(text) <= size {
		return []string{text}
	}
	var chunks []string
	start := 0
	for {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			return chunks
		}
		end = alignRuneStart(text, end)
		chunks = append(chunks, text[start:end])
		start = alignRuneStart(text, end-overlap)
	}
}

// alignRuneStart moves i backwards until it sits on a rune boundary.
func alignRuneStart(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
