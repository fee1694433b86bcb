package persona_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alterego-local/alterego/persona"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRegistry_ThreeEncodings(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "rhea.chaos", `[PERSONA]: Rhea
[TONE]: soft
[KEYWORDS]: rest, witness; grounding
[PHRASES]: palms open to the present; breathe with me
[OVERRIDES]: {"you should": "we could"}
[AFFINITIES]: fatigue, dissociation_cue
`)
	writeFile(t, dir, "naoto_mirror.json", `{
  "name": "Naoto",
  "tone": "analytical",
  "keywords": ["structure", "plan"],
  "phrases": ["let's map it out"],
  "overrides": {"problem": "puzzle"},
  "echo_affinities": ["pattern_loop"]
}`)
	writeFile(t, dir, "lumen.yaml", `name: Lumen
tone: luminous
keywords:
  - echo
  - hum
phrases:
  - humming beside you
affinities:
  - tremor
  - overload
`)

	reg := persona.NewRegistry(dir)
	count, err := reg.Rescan()
	if err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("Rescan loaded %d personas, want 3", count)
	}

	cases := []struct {
		id     string
		tone   string
		format persona.Format
		tag    string
	}{
		{"rhea", "soft", persona.FormatChaos, "fatigue"},
		{"naoto", "analytical", persona.FormatMirror, "pattern_loop"},
		{"lumen", "luminous", persona.FormatYAML, "overload"},
	}
	for _, tc := range cases {
		p, ok := reg.Get(tc.id)
		if !ok {
			t.Errorf("Get(%q) not found", tc.id)
			continue
		}
		if p.Tone != tc.tone {
			t.Errorf("%s tone = %q, want %q", tc.id, p.Tone, tc.tone)
		}
		if p.SourceFormat != tc.format {
			t.Errorf("%s format = %q, want %q", tc.id, p.SourceFormat, tc.format)
		}
		if !p.HasAffinity(tc.tag) {
			t.Errorf("%s should have affinity %q", tc.id, tc.tag)
		}
	}

	// Lookup is case-insensitive.
	if _, ok := reg.Get("RHEA"); !ok {
		t.Error("Get should normalize case")
	}
}

func TestRegistry_SkipsUnparseableDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.json", `{"name": "Echo", "tone": "quiet"}`)
	writeFile(t, dir, "broken.json", `{"name": "Half`)
	writeFile(t, dir, "empty.chaos", "just prose, no fields")
	writeFile(t, dir, "readme.txt", "not a persona file at all")

	reg := persona.NewRegistry(dir)
	count, err := reg.Rescan()
	if err != nil {
		t.Fatalf("Rescan should tolerate bad definitions: %v", err)
	}
	if count != 1 {
		t.Errorf("Rescan loaded %d personas, want 1", count)
	}
	if _, ok := reg.Get("echo"); !ok {
		t.Error("the parseable persona should still load")
	}
}

func TestPersona_StyleResponse(t *testing.T) {
	p := &persona.Persona{
		DisplayName: "Rhea",
		Overrides:   map[string]string{"you should": "we could"},
	}
	got := p.StyleResponse("Maybe you should slow down.")
	want := "Maybe we could slow down.\n-- [Rhea]"
	if got != want {
		t.Errorf("StyleResponse = %q, want %q", got, want)
	}
}

func TestRegistry_RescanReplaces(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.json", `{"name": "One"}`)

	reg := persona.NewRegistry(dir)
	if _, err := reg.Rescan(); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Get("one"); !ok {
		t.Fatal("persona One should exist after first scan")
	}

	if err := os.Remove(filepath.Join(dir, "one.json")); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "two.json", `{"name": "Two"}`)

	count, err := reg.Rescan()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("second Rescan loaded %d, want 1", count)
	}
	if _, ok := reg.Get("one"); ok {
		t.Error("removed persona should disappear after rescan")
	}
	if _, ok := reg.Get("two"); !ok {
		t.Error("new persona should appear after rescan")
	}
}
