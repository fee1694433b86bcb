// Package fronting tracks which persona is currently fronting and records
// every switch to an append-only log.
package fronting

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alterego-local/alterego/core"
	"github.com/alterego-local/alterego/persona"
)

// Directory resolves persona ids. *persona.Registry satisfies it.
type Directory interface {
	Get(id string) (*persona.Persona, bool)
}

// State is the fronting state machine. All methods are safe for concurrent
// use. A switch to an unknown persona fails and leaves the state untouched.
type State struct {
	mu      sync.Mutex
	dir     Directory
	logPath string
	current string
	history []core.FrontingRecord
}

// New creates a fronting state with no one fronting yet. logPath may be
// empty to disable the switch log.
func New(dir Directory, logPath string) *State {
	return &State{dir: dir, logPath: logPath}
}

// Current returns the id of the fronting persona, or "" when nobody fronts.
func (s *State) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SwitchTo moves fronting to the named persona. The id must resolve in the
// directory; otherwise the switch is rejected and the previous persona keeps
// fronting. Writing the switch log is best-effort.
func (s *State) SwitchTo(personaID string, trigger core.Trigger, comment string) (core.FrontingRecord, error) {
	p, ok := s.dir.Get(personaID)
	if !ok {
		return core.FrontingRecord{}, fmt.Errorf("switch to %q: %w", personaID, persona.ErrUnknownPersona)
	}

	rec := core.FrontingRecord{
		PersonaID:  p.ID,
		SwitchedAt: time.Now().UTC(),
		Trigger:    trigger,
		Comment:    comment,
	}

	s.mu.Lock()
	s.current = p.ID
	s.history = append(s.history, rec)
	s.mu.Unlock()

	s.appendSwitchLog(rec)
	return rec, nil
}

// History returns a copy of every switch recorded this session, oldest
// first.
func (s *State) History() []core.FrontingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.FrontingRecord, len(s.history))
	copy(out, s.history)
	return out
}

// appendSwitchLog writes one record as a JSON array line. Failures are
// logged and swallowed so a broken disk never blocks a switch.
func (s *State) appendSwitchLog(rec core.FrontingRecord) {
	if s.logPath == "" {
		return
	}

	line, err := json.Marshal([]string{
		rec.PersonaID,
		rec.SwitchedAt.Format(time.RFC3339),
		string(rec.Trigger),
		rec.Comment,
	})
	if err != nil {
		log.Printf("[FRONT] Failed to encode switch record: %v", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.logPath), 0o755); err != nil {
		log.Printf("[FRONT] Failed to create switch log dir: %v", err)
		return
	}
	f, err := os.OpenFile(s.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[FRONT] Failed to open switch log: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Printf("[FRONT] Failed to append switch record: %v", err)
	}
}

// ReadSwitchLog parses a switch log written by appendSwitchLog. Lines that
// fail to parse are skipped.
func ReadSwitchLog(path string) ([]core.FrontingRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read switch log: %w", err)
	}

	var records []core.FrontingRecord
	for _, line := range splitLines(data) {
		var fields []string
		if err := json.Unmarshal(line, &fields); err != nil || len(fields) < 3 {
			continue
		}
		at, err := time.Parse(time.RFC3339, fields[1])
		if err != nil {
			continue
		}
		rec := core.FrontingRecord{
			PersonaID:  fields[0],
			SwitchedAt: at,
			Trigger:    core.Trigger(fields[2]),
		}
		if len(fields) > 3 {
			rec.Comment = fields[3]
		}
		records = append(records, rec)
	}
	return records, nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
