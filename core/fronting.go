package core

import "time"

// Trigger records how a fronting switch was initiated.
type Trigger string

const (
	// TriggerPrompted marks an explicit user selection.
	TriggerPrompted Trigger = "prompted"

	// TriggerAutonomous marks an echo-driven auto-switch.
	TriggerAutonomous Trigger = "autonomous"
)

// FrontingRecord is one timestamped transition of the fronting state.
// The history of records is append-only and monotonically increasing in
// SwitchedAt; the current record is always the last history element.
type FrontingRecord struct {
	PersonaID  string
	SwitchedAt time.Time
	Trigger    Trigger
	Comment    string
}
