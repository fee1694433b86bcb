// Package chaoslog implements the append-only symbolic log.
//
// Entries are encoded as human-readable CHAOS blocks: a header of bracketed
// key:value lines, a braces-delimited free-text body, and a blank-line
// separator. The file is the durable record of every interaction; append is
// the sole mutator and the write order is the only ordering that matters.
package chaoslog

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alterego-local/alterego/core"
)

// LogError describes a failure to write or read the symbolic log.
type LogError struct {
	Op   string
	Path string
	Err  error
}

func (e *LogError) Error() string {
	return fmt.Sprintf("chaos log %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LogError) Unwrap() error { return e.Err }

// Store is an append-only symbolic log backed by a single UTF-8 text file.
//
// Store assumes one logical writer. The internal mutex serializes appends
// within a process; running two processes against the same path is
// unsupported and may corrupt the append stream.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a store for the given log file path. The file and its parent
// directory are created lazily on the first append.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the log file path.
func (s *Store) Path() string { return s.path }

// Append durably persists one entry and returns the byte offset at which it
// was written. When Append returns nil the entry has been flushed to disk.
//
// Directory setup is attempted once per call; if it fails, Append returns a
// LogError without attempting the write, so the caller sees a single failure
// rather than a mkdir error followed by a confusing write error.
func (s *Store) Append(entry core.LogEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, &LogError{Op: "mkdir", Path: dir, Err: err}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, &LogError{Op: "open", Path: s.path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, &LogError{Op: "stat", Path: s.path, Err: err}
	}
	offset := info.Size()

	if _, err := f.WriteString(Encode(entry)); err != nil {
		return 0, &LogError{Op: "write", Path: s.path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return 0, &LogError{Op: "sync", Path: s.path, Err: err}
	}

	log.Printf("[CHAOS] Appended %s entry at offset %d", entry.Kind, offset)
	return offset, nil
}

// Encode renders one entry as a CHAOS block, including the trailing
// blank-line separator.
func Encode(entry core.LogEntry) string {
	var b strings.Builder

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	fmt.Fprintf(&b, "[EVENT]: %s\n", entry.Kind)
	fmt.Fprintf(&b, "[TIME]: %s\n", ts.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "[CONTEXT]: %s\n", entry.Context)
	fmt.Fprintf(&b, "[SIGNIFICANCE]: %s\n", entry.Significance)
	if entry.Emotion != "" {
		fmt.Fprintf(&b, "[EMOTION]: %s\n", entry.Emotion)
	}
	if entry.State != "" {
		fmt.Fprintf(&b, "[STATE]: %s\n", entry.State)
	}
	if entry.Summary != "" {
		fmt.Fprintf(&b, "[SUMMARY]: %s\n", entry.Summary)
	}
	b.WriteString("{\n")
	if entry.Body != "" {
		b.WriteString(entry.Body)
		if !strings.HasSuffix(entry.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("}\n\n")

	return b.String()
}

// ReadAll parses every decodable entry in the log, in append order.
// A missing log file yields an empty slice, not an error.
func (s *Store) ReadAll() ([]core.LogEntry, error) {
	sc, err := s.Entries()
	if err != nil {
		return nil, err
	}
	defer sc.Close()

	var entries []core.LogEntry
	for sc.Next() {
		entries = append(entries, sc.Entry())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if n := sc.Skipped(); n > 0 {
		log.Printf("[CHAOS] Skipped %d malformed entries while reading %s", n, s.path)
	}
	return entries, nil
}
