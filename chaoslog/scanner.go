package chaoslog

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alterego-local/alterego/core"
)

// Scanner streams entries out of a CHAOS log. It is tolerant of missing
// optional header fields; an unterminated body is fatal for that record only
// and the scanner continues with the next one.
type Scanner struct {
	r       *bufio.Scanner
	closer  io.Closer
	entry   core.LogEntry
	err     error
	skipped int

	// pending holds an [EVENT] value seen while recovering from a malformed
	// record, so the next record is not lost.
	pending    string
	hasPending bool
}

// Entries opens the log file and returns a Scanner positioned before the
// first entry. A fresh Scanner restarts the sequence from the beginning.
// A missing log file yields a Scanner that returns no entries.
func (s *Store) Entries() (*Scanner, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Scanner{r: bufio.NewScanner(strings.NewReader(""))}, nil
		}
		return nil, &LogError{Op: "open", Path: s.path, Err: err}
	}
	return &Scanner{r: bufio.NewScanner(f), closer: f}, nil
}

// Parse returns a Scanner over an already-open reader. Used by tests and by
// tools that read log fragments from sources other than the store's file.
func Parse(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewScanner(r)}
}

// Next advances to the next decodable entry. It returns false at end of
// input or on a read error; malformed records are skipped, not surfaced.
func (sc *Scanner) Next() bool {
	for {
		entry, ok, eof := sc.scanOne()
		if eof {
			return false
		}
		if !ok {
			sc.skipped++
			continue
		}
		sc.entry = entry
		return true
	}
}

// Entry returns the entry read by the last successful Next.
func (sc *Scanner) Entry() core.LogEntry { return sc.entry }

// Err returns the first underlying read error, if any.
func (sc *Scanner) Err() error { return sc.err }

// Skipped reports how many malformed records were dropped so far.
func (sc *Scanner) Skipped() int { return sc.skipped }

// Close releases the underlying file, if the Scanner owns one.
func (sc *Scanner) Close() error {
	if sc.closer != nil {
		return sc.closer.Close()
	}
	return nil
}

// scanOne reads one block. ok=false means the block was malformed and
// should be skipped; eof=true means input is exhausted.
func (sc *Scanner) scanOne() (entry core.LogEntry, ok bool, eof bool) {
	// Find the start of the next record, unless a lookahead is buffered.
	if sc.hasPending {
		entry.Kind = core.EventKind(sc.pending)
		sc.hasPending = false
	} else {
		var found bool
		for sc.r.Scan() {
			line := strings.TrimSpace(sc.r.Text())
			if strings.HasPrefix(line, "[EVENT]:") {
				entry.Kind = core.EventKind(strings.TrimSpace(strings.TrimPrefix(line, "[EVENT]:")))
				found = true
				break
			}
		}
		if !found {
			sc.err = sc.r.Err()
			return entry, false, true
		}
	}

	// Header lines until the opening brace. Another [EVENT] line before the
	// brace means this record never got a body; drop it and buffer the new
	// record's kind.
	var sawBrace bool
	for sc.r.Scan() {
		line := strings.TrimSpace(sc.r.Text())
		if line == "{" {
			sawBrace = true
			break
		}
		if strings.HasPrefix(line, "[EVENT]:") {
			sc.pending = strings.TrimSpace(strings.TrimPrefix(line, "[EVENT]:"))
			sc.hasPending = true
			return entry, false, false
		}
		key, value, split := cutHeader(line)
		if !split {
			continue
		}
		switch key {
		case "TIME":
			if ts, err := time.Parse(time.RFC3339, value); err == nil {
				entry.Timestamp = ts
			}
		case "CONTEXT":
			entry.Context = value
		case "SIGNIFICANCE":
			entry.Significance = core.Significance(value)
		case "EMOTION":
			entry.Emotion = value
		case "STATE":
			entry.State = value
		case "SUMMARY":
			entry.Summary = value
		}
	}
	if !sawBrace {
		sc.err = sc.r.Err()
		return entry, false, true
	}

	// Body lines until the closing brace. EOF before the brace means the
	// record is truncated and must be dropped.
	var body []string
	for sc.r.Scan() {
		line := sc.r.Text()
		if strings.TrimSpace(line) == "}" {
			entry.Body = strings.Join(body, "\n")
			return entry, true, false
		}
		body = append(body, line)
	}
	sc.err = sc.r.Err()
	return entry, false, true
}

// cutHeader splits a "[KEY]: value" line.
func cutHeader(line string) (key, value string, ok bool) {
	if !strings.HasPrefix(line, "[") {
		return "", "", false
	}
	end := strings.Index(line, "]:")
	if end < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[1:end])
	value = strings.TrimSpace(line[end+2:])
	return key, value, true
}
