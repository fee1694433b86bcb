package echo

import (
	"github.com/alterego-local/alterego/core"
	"github.com/alterego-local/alterego/persona"
)

// SwitchPolicy decides whether detected signals should move fronting to
// another persona. It returns the target persona id and true to request a
// switch, or false to leave fronting alone.
type SwitchPolicy func(current string, annotations []core.EchoAnnotation, candidates []*persona.Persona) (string, bool)

// autonomousThreshold is the confidence a signal needs before the default
// policy will act on it.
const autonomousThreshold = 0.75

// DefaultSwitchPolicy hands fronting to the first persona with an affinity
// for a high-confidence pattern_loop or dissociation_cue signal. It never
// switches to the persona already fronting.
func DefaultSwitchPolicy(current string, annotations []core.EchoAnnotation, candidates []*persona.Persona) (string, bool) {
	for _, ann := range annotations {
		if ann.Confidence < autonomousThreshold {
			continue
		}
		if ann.Kind != core.SignalPatternLoop && ann.Kind != core.SignalDissociation {
			continue
		}
		for _, p := range candidates {
			if p.ID == current {
				continue
			}
			if p.HasAffinity(string(ann.Kind)) {
				return p.ID, true
			}
		}
	}
	return "", false
}
