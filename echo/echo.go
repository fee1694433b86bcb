// Package echo detects emotional and symbolic signals in user text.
//
// Detection is deliberately heuristic: a small keyword lexicon per signal
// kind, plus a rolling window of recent prompts for loop detection. The
// analyzer never calls out to a model.
package echo

import (
	"sort"
	"strings"
	"sync"

	"github.com/alterego-local/alterego/core"
)

// Config tunes the analyzer.
type Config struct {
	// MinConfidence drops annotations scored below it.
	MinConfidence float64

	// WindowSize is how many recent prompts are kept for loop detection.
	WindowSize int
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() *Config {
	return &Config{
		MinConfidence: 0.25,
		WindowSize:    6,
	}
}

// lexicon maps each signal kind to the fragments that suggest it. Matching
// is case-insensitive substring search.
var lexicon = map[core.SignalKind][]string{
	core.SignalTremor: {
		"shaking", "trembling", "jittery", "heart racing", "can't sit still",
	},
	core.SignalFatigue: {
		"tired", "exhausted", "drained", "worn out", "can't keep my eyes",
		"no energy", "so heavy",
	},
	core.SignalDissociation: {
		"not real", "unreal", "floating", "outside my body", "far away",
		"foggy", "detached", "watching myself",
	},
	core.SignalOverload: {
		"too much", "overwhelmed", "can't think", "too loud",
		"everything at once", "drowning in",
	},
	core.SignalPatternLoop: {
		"again and again", "over and over", "same thought", "keep thinking",
		"can't stop thinking",
	},
}

// Analyzer scans prompts for signals. Safe for concurrent use.
type Analyzer struct {
	config *Config

	mu     sync.Mutex
	recent []string
}

// New creates an analyzer. A nil config uses DefaultConfig.
func New(config *Config) *Analyzer {
	if config == nil {
		config = DefaultConfig()
	}
	if config.WindowSize <= 0 {
		config.WindowSize = DefaultConfig().WindowSize
	}
	return &Analyzer{config: config}
}

// Analyze scores the text against every signal kind and returns the
// annotations at or above the configured confidence floor, strongest first.
// The text joins the rolling window afterwards.
func (a *Analyzer) Analyze(text string) []core.EchoAnnotation {
	lower := strings.ToLower(text)

	var annotations []core.EchoAnnotation
	for kind, fragments := range lexicon {
		var hits []string
		for _, frag := range fragments {
			if strings.Contains(lower, frag) {
				hits = append(hits, frag)
			}
		}
		if len(hits) == 0 {
			continue
		}
		annotations = append(annotations, core.EchoAnnotation{
			Kind:       kind,
			Confidence: clamp(0.4 + 0.2*float64(len(hits)-1)),
			Span:       hits[0],
		})
	}

	if loop, ok := a.detectLoop(lower); ok {
		annotations = mergeLoop(annotations, loop)
	}

	a.remember(lower)

	filtered := annotations[:0]
	for _, ann := range annotations {
		if ann.Confidence >= a.config.MinConfidence {
			filtered = append(filtered, ann)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Confidence > filtered[j].Confidence
	})
	return filtered
}

// detectLoop compares the prompt against the rolling window. Heavy token
// overlap with any recent prompt reads as a thought loop.
func (a *Analyzer) detectLoop(lower string) (core.EchoAnnotation, bool) {
	words := tokenize(lower)
	if len(words) < 3 {
		return core.EchoAnnotation{}, false
	}

	a.mu.Lock()
	recent := make([]string, len(a.recent))
	copy(recent, a.recent)
	a.mu.Unlock()

	best := 0.0
	for _, prev := range recent {
		if ratio := overlap(words, tokenize(prev)); ratio > best {
			best = ratio
		}
	}
	if best < 0.6 {
		return core.EchoAnnotation{}, false
	}
	return core.EchoAnnotation{
		Kind:       core.SignalPatternLoop,
		Confidence: clamp(best),
		Span:       lower,
	}, true
}

// mergeLoop folds a repetition-detected loop into any keyword-detected one,
// keeping the higher confidence.
func mergeLoop(annotations []core.EchoAnnotation, loop core.EchoAnnotation) []core.EchoAnnotation {
	for i, ann := range annotations {
		if ann.Kind == core.SignalPatternLoop {
			if loop.Confidence > ann.Confidence {
				annotations[i] = loop
			}
			return annotations
		}
	}
	return append(annotations, loop)
}

func (a *Analyzer) remember(lower string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recent = append(a.recent, lower)
	if len(a.recent) > a.config.WindowSize {
		a.recent = a.recent[len(a.recent)-a.config.WindowSize:]
	}
}

// Reset clears the rolling window, e.g. at session boundaries.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	a.recent = nil
	a.mu.Unlock()
}

func tokenize(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		set[w] = struct{}{}
	}
	return set
}

// overlap is the Jaccard similarity of two token sets.
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
