package dialogue_test

import (
	"context"
	"strings"
	"testing"

	"github.com/alterego-local/alterego/core"
	"github.com/alterego-local/alterego/dialogue"
	"github.com/alterego-local/alterego/fronting"
)

func TestAutosave_PlainSnapshot(t *testing.T) {
	personas := testPersonas()
	front := fronting.New(personas, "")
	logStore := newTestLog(t)
	o := dialogue.New(logStore, newTestIndex(t), personas, front,
		dialogue.WithConfig(&dialogue.Config{DefaultPersona: "rhea", DummyMode: dialogue.DummyOn, TopK: 3}),
	)

	if _, err := o.HandleExchange(context.Background(), "just a calm check-in"); err != nil {
		t.Fatal(err)
	}
	if err := o.Autosave(context.Background()); err != nil {
		t.Fatalf("Autosave failed: %v", err)
	}

	entries, err := logStore.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	last := entries[len(entries)-1]
	if last.Kind != core.EventAutosave {
		t.Errorf("snapshot kind = %s, want autosave_echo", last.Kind)
	}
	if last.State != "rhea" {
		t.Errorf("snapshot state = %q, want the fronting persona", last.State)
	}
}

func TestAutosave_EchoOnHighConfidenceSignal(t *testing.T) {
	personas := testPersonas()
	front := fronting.New(personas, "")
	logStore := newTestLog(t)
	ix := newTestIndex(t)
	o := dialogue.New(logStore, ix, personas, front,
		dialogue.WithConfig(&dialogue.Config{DefaultPersona: "rhea", DummyMode: dialogue.DummyOn, TopK: 3}),
	)

	ctx := context.Background()
	loop := "why did the conversation end like that yesterday evening"
	if _, err := o.HandleExchange(ctx, loop); err != nil {
		t.Fatal(err)
	}
	if _, err := o.HandleExchange(ctx, loop); err != nil {
		t.Fatal(err)
	}
	if err := o.Autosave(ctx); err != nil {
		t.Fatal(err)
	}

	entries, err := logStore.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	last := entries[len(entries)-1]
	if last.Kind != core.EventEcho {
		t.Errorf("snapshot kind = %s, want echo", last.Kind)
	}
	if last.Emotion != string(core.SignalPatternLoop) {
		t.Errorf("snapshot emotion = %q, want pattern_loop", last.Emotion)
	}
	if last.Body == "" {
		t.Error("echo snapshot should carry a whisper body")
	}

	// The whisper body becomes retrievable memory under an autosave source.
	results, err := ix.Query(ctx, last.Body, 10)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, r := range results {
		if r.Chunk.Text == last.Body && strings.HasPrefix(r.Chunk.SourceID, "autosave:") {
			found = true
		}
	}
	if !found {
		t.Error("echo snapshot was never indexed into memory")
	}
}
