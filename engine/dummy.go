package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Playbook is the scripted repertoire of the dummy engine. Scripts are
// matched in order; the first whose keyword conditions hold wins.
type Playbook struct {
	// PersonaOpenings maps persona id to an opening fragment substituted
	// for {persona_opening} in replies.
	PersonaOpenings map[string]string `yaml:"persona_openings"`

	Scripts []Script `yaml:"scripts"`

	// Fallback is used when no script matches. Empty means a built-in line.
	Fallback string `yaml:"fallback"`
}

// Script is one scripted reply with its match conditions. All keyword
// matching is case-insensitive substring search against the prompt.
type Script struct {
	// Any matches when at least one keyword appears. Empty means no
	// constraint from this clause.
	Any []string `yaml:"any"`

	// All matches only when every keyword appears.
	All []string `yaml:"all"`

	// Exclude vetoes the script when any keyword appears.
	Exclude []string `yaml:"exclude"`

	// Reply may contain {persona_opening} and {memory_sentence}.
	Reply string `yaml:"reply"`
}

func (s *Script) matches(lower string) bool {
	if len(s.Any) > 0 {
		hit := false
		for _, kw := range s.Any {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, kw := range s.All {
		if !strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	for _, kw := range s.Exclude {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

// DummyEngine generates scripted responses without any network or model.
// It is the offline companion voice and the explicit fallback target.
type DummyEngine struct {
	playbook *Playbook
}

// NewDummyEngine creates the engine with the given playbook, or the
// built-in one when nil.
func NewDummyEngine(playbook *Playbook) *DummyEngine {
	if playbook == nil {
		playbook = defaultPlaybook()
	}
	return &DummyEngine{playbook: playbook}
}

// LoadPlaybook reads a YAML playbook from disk.
func LoadPlaybook(path string) (*Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playbook: %w", err)
	}
	var pb Playbook
	if err := yaml.Unmarshal(data, &pb); err != nil {
		return nil, fmt.Errorf("parse playbook %s: %w", path, err)
	}
	return &pb, nil
}

// NewDummyEngineFromFile loads a playbook, falling back to the built-in one
// with a warning when the file is missing or broken.
func NewDummyEngineFromFile(path string) *DummyEngine {
	if path == "" {
		return NewDummyEngine(nil)
	}
	pb, err := LoadPlaybook(path)
	if err != nil {
		log.Printf("[ENGINE] Falling back to built-in playbook: %v", err)
		return NewDummyEngine(nil)
	}
	return NewDummyEngine(pb)
}

// Generate picks the first matching script and fills its templates. It
// never fails.
func (e *DummyEngine) Generate(_ context.Context, prompt string, pc PersonaContext) (string, error) {
	lower := strings.ToLower(prompt)

	reply := e.playbook.Fallback
	for i := range e.playbook.Scripts {
		if e.playbook.Scripts[i].matches(lower) {
			reply = e.playbook.Scripts[i].Reply
			break
		}
	}
	if reply == "" {
		reply = "I'm here with you. Tell me more."
	}
	return e.render(reply, pc), nil
}

func (e *DummyEngine) render(reply string, pc PersonaContext) string {
	opening := e.playbook.PersonaOpenings[pc.ID]
	if opening == "" {
		opening = defaultOpening(pc)
	}
	memory := ""
	if len(pc.Memories) > 0 {
		memory = "I remember: " + pc.Memories[0]
	}

	out := strings.ReplaceAll(reply, "{persona_opening}", opening)
	out = strings.ReplaceAll(out, "{memory_sentence}", memory)
	return strings.TrimSpace(out)
}

func defaultOpening(pc PersonaContext) string {
	if pc.DisplayName != "" {
		return pc.DisplayName + " here."
	}
	return "I'm here."
}

// defaultPlaybook is the built-in repertoire used when no script file is
// configured.
func defaultPlaybook() *Playbook {
	return &Playbook{
		Scripts: []Script{
			{
				Any:   []string{"tired", "exhausted", "drained"},
				Reply: "{persona_opening} You sound worn thin. Rest counts as progress too. {memory_sentence}",
			},
			{
				Any:   []string{"hello", "hi ", "hey"},
				Reply: "{persona_opening} It's good to hear from you.",
			},
			{
				Any:     []string{"remember", "memory"},
				Exclude: []string{"forget"},
				Reply:   "{persona_opening} {memory_sentence}",
			},
			{
				All:   []string{"can't", "stop"},
				Reply: "{persona_opening} Let's slow the loop down together, one breath at a time.",
			},
		},
		Fallback: "{persona_opening} I'm listening.",
	}
}
