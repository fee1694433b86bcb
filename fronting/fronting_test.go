package fronting_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/alterego-local/alterego/core"
	"github.com/alterego-local/alterego/fronting"
	"github.com/alterego-local/alterego/persona"
)

type staticDirectory map[string]*persona.Persona

func (d staticDirectory) Get(id string) (*persona.Persona, bool) {
	p, ok := d[persona.NormalizeID(id)]
	return p, ok
}

func testDirectory() staticDirectory {
	return staticDirectory{
		"rhea":  {ID: "rhea", DisplayName: "Rhea"},
		"naoto": {ID: "naoto", DisplayName: "Naoto"},
	}
}

func TestState_SwitchTo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "switches.log")
	st := fronting.New(testDirectory(), logPath)

	if st.Current() != "" {
		t.Fatalf("fresh state should have nobody fronting, got %q", st.Current())
	}

	rec, err := st.SwitchTo("Rhea", core.TriggerPrompted, "session start")
	if err != nil {
		t.Fatalf("SwitchTo failed: %v", err)
	}
	if rec.PersonaID != "rhea" {
		t.Errorf("record persona = %q, want rhea", rec.PersonaID)
	}
	if st.Current() != "rhea" {
		t.Errorf("Current = %q, want rhea", st.Current())
	}

	if _, err := st.SwitchTo("naoto", core.TriggerAutonomous, "pattern loop detected"); err != nil {
		t.Fatalf("second SwitchTo failed: %v", err)
	}

	hist := st.History()
	if len(hist) != 2 {
		t.Fatalf("history has %d records, want 2", len(hist))
	}
	if hist[0].PersonaID != "rhea" || hist[1].PersonaID != "naoto" {
		t.Errorf("history order wrong: %q then %q", hist[0].PersonaID, hist[1].PersonaID)
	}
	if hist[1].Trigger != core.TriggerAutonomous {
		t.Errorf("trigger = %q, want autonomous", hist[1].Trigger)
	}
}

func TestState_UnknownPersonaLeavesStateUnchanged(t *testing.T) {
	st := fronting.New(testDirectory(), "")

	if _, err := st.SwitchTo("rhea", core.TriggerPrompted, ""); err != nil {
		t.Fatal(err)
	}

	_, err := st.SwitchTo("nobody", core.TriggerPrompted, "")
	if err == nil {
		t.Fatal("SwitchTo to an unknown persona should fail")
	}
	if !errors.Is(err, persona.ErrUnknownPersona) {
		t.Errorf("error should wrap ErrUnknownPersona, got %v", err)
	}
	if st.Current() != "rhea" {
		t.Errorf("failed switch changed Current to %q", st.Current())
	}
	if len(st.History()) != 1 {
		t.Errorf("failed switch appended to history: %d records", len(st.History()))
	}
}

func TestReadSwitchLog_RoundTrip(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "switches.log")
	st := fronting.New(testDirectory(), logPath)

	if _, err := st.SwitchTo("rhea", core.TriggerPrompted, "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.SwitchTo("naoto", core.TriggerAutonomous, ""); err != nil {
		t.Fatal(err)
	}

	records, err := fronting.ReadSwitchLog(logPath)
	if err != nil {
		t.Fatalf("ReadSwitchLog failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("read %d records, want 2", len(records))
	}
	if records[0].PersonaID != "rhea" || records[0].Comment != "hello" {
		t.Errorf("first record = %+v", records[0])
	}
	if records[1].Trigger != core.TriggerAutonomous {
		t.Errorf("second record trigger = %q", records[1].Trigger)
	}
}

func TestReadSwitchLog_MissingFile(t *testing.T) {
	records, err := fronting.ReadSwitchLog(filepath.Join(t.TempDir(), "absent.log"))
	if err != nil {
		t.Fatalf("missing log should not error: %v", err)
	}
	if records != nil {
		t.Errorf("missing log should yield no records, got %d", len(records))
	}
}
