package echo_test

import (
	"testing"

	"github.com/alterego-local/alterego/core"
	"github.com/alterego-local/alterego/echo"
	"github.com/alterego-local/alterego/persona"
)

func findKind(anns []core.EchoAnnotation, kind core.SignalKind) (core.EchoAnnotation, bool) {
	for _, a := range anns {
		if a.Kind == kind {
			return a, true
		}
	}
	return core.EchoAnnotation{}, false
}

func TestAnalyzer_DetectsFatigue(t *testing.T) {
	a := echo.New(nil)

	anns := a.Analyze("I'm so tired today, completely drained after work")
	ann, ok := findKind(anns, core.SignalFatigue)
	if !ok {
		t.Fatalf("fatigue not detected in %v", anns)
	}
	if ann.Confidence < 0.25 || ann.Confidence > 1 {
		t.Errorf("confidence %f out of range", ann.Confidence)
	}
	if ann.Span == "" {
		t.Error("annotation should carry the triggering span")
	}
}

func TestAnalyzer_ConfidenceBounds(t *testing.T) {
	a := echo.New(&echo.Config{MinConfidence: 0, WindowSize: 6})

	prompts := []string{
		"everything is too much, too loud, I'm overwhelmed and can't think",
		"I feel not real, unreal, floating far away, foggy and detached, watching myself",
		"just a plain sentence about the weather",
	}
	for _, p := range prompts {
		for _, ann := range a.Analyze(p) {
			if ann.Confidence < 0 || ann.Confidence > 1 {
				t.Errorf("Analyze(%q): confidence %f out of [0,1]", p, ann.Confidence)
			}
		}
	}
}

func TestAnalyzer_NeutralTextYieldsNothing(t *testing.T) {
	a := echo.New(nil)
	if anns := a.Analyze("what time does the library open tomorrow"); len(anns) != 0 {
		t.Errorf("neutral prompt produced annotations: %v", anns)
	}
}

func TestAnalyzer_PatternLoopFromRepetition(t *testing.T) {
	a := echo.New(nil)

	a.Analyze("why did the conversation end like that yesterday")
	a.Analyze("the meeting went fine I think")
	anns := a.Analyze("why did the conversation end like that yesterday")

	ann, ok := findKind(anns, core.SignalPatternLoop)
	if !ok {
		t.Fatalf("repeated prompt should read as a loop, got %v", anns)
	}
	if ann.Confidence < 0.6 {
		t.Errorf("near-identical repetition scored only %f", ann.Confidence)
	}
}

func TestAnalyzer_MinConfidenceFilters(t *testing.T) {
	strict := echo.New(&echo.Config{MinConfidence: 0.99, WindowSize: 6})
	if anns := strict.Analyze("I'm so tired and drained"); len(anns) != 0 {
		t.Errorf("floor 0.99 should filter everything, got %v", anns)
	}
}

func TestAnalyzer_ResetClearsWindow(t *testing.T) {
	a := echo.New(nil)
	a.Analyze("the same strange dream about the stairwell returned")
	a.Reset()
	anns := a.Analyze("the same strange dream about the stairwell returned")
	if _, ok := findKind(anns, core.SignalPatternLoop); ok {
		t.Error("Reset should clear the repetition window")
	}
}

func TestDefaultSwitchPolicy(t *testing.T) {
	candidates := []*persona.Persona{
		{ID: "rhea", EchoAffinities: []string{"fatigue"}},
		{ID: "naoto", EchoAffinities: []string{"pattern_loop"}},
	}

	tests := []struct {
		name    string
		current string
		anns    []core.EchoAnnotation
		want    string
		wantOK  bool
	}{
		{
			name:    "high confidence loop switches to affinity",
			current: "rhea",
			anns:    []core.EchoAnnotation{{Kind: core.SignalPatternLoop, Confidence: 0.9}},
			want:    "naoto",
			wantOK:  true,
		},
		{
			name:    "low confidence does nothing",
			current: "rhea",
			anns:    []core.EchoAnnotation{{Kind: core.SignalPatternLoop, Confidence: 0.5}},
			wantOK:  false,
		},
		{
			name:    "fatigue alone never triggers autonomy",
			current: "naoto",
			anns:    []core.EchoAnnotation{{Kind: core.SignalFatigue, Confidence: 0.95}},
			wantOK:  false,
		},
		{
			name:    "never switches to the fronting persona",
			current: "naoto",
			anns:    []core.EchoAnnotation{{Kind: core.SignalPatternLoop, Confidence: 0.9}},
			wantOK:  false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := echo.DefaultSwitchPolicy(tc.current, tc.anns, candidates)
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("policy = (%q, %v), want (%q, %v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}
