package core

import "time"

// EventKind identifies what a symbolic log entry records.
type EventKind string

const (
	EventSessionStart EventKind = "session_start"
	EventUserPrompt   EventKind = "user_prompt"
	EventResponse     EventKind = "response"
	EventEcho         EventKind = "echo"
	EventAutosave     EventKind = "autosave_echo"
	EventSessionEnd   EventKind = "session_end"
)

// Significance is an ordinal weight attached to a log entry.
type Significance string

const (
	SignificanceLow    Significance = "LOW"
	SignificanceMedium Significance = "MEDIUM"
	SignificanceHigh   Significance = "HIGH"
)

// LogEntry is one immutable record in the symbolic log.
//
// The log is ordered by write position; Timestamp is informational only and
// never used as a sort key. Emotion, State and Summary are optional and may
// be empty, as may Body.
type LogEntry struct {
	Kind         EventKind
	Timestamp    time.Time
	Context      string
	Significance Significance
	Emotion      string
	State        string
	Summary      string
	Body         string
}
