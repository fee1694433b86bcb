// Package engine generates response text. Two implementations exist: the
// Claude backend for the primary voice and a scripted dummy engine that
// works fully offline.
package engine

import (
	"context"
	"errors"
)

// ErrBackendUnavailable means the primary backend cannot be reached right
// now: no credentials, no network, or a transport failure. Callers decide
// what to fall back to.
var ErrBackendUnavailable = errors.New("backend unavailable")

// PersonaContext carries everything a generator may weave into a response.
type PersonaContext struct {
	ID          string
	DisplayName string
	Tone        string
	Phrases     []string

	// Memories are retrieved fragments, most relevant first.
	Memories []string
}

// Generator produces a raw (unstyled) response to a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, pc PersonaContext) (string, error)
}
