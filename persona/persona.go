// Package persona loads and holds persona definitions.
//
// Definitions arrive in three interchangeable encodings: CHAOS blocks
// (.chaos), mirror JSON (.json) and YAML (.yaml/.yml). All three decode
// into the same canonical Persona; the encoding is data, never code.
package persona

import (
	"errors"
	"strings"
)

// ErrUnknownPersona is returned when a persona id is not in the registry.
var ErrUnknownPersona = errors.New("unknown persona")

// Format identifies which encoding a persona definition used.
type Format string

const (
	FormatChaos  Format = "chaos"
	FormatMirror Format = "mirror"
	FormatYAML   Format = "yaml"
)

// Persona is the canonical in-memory persona representation. Personas are
// immutable during a session; the registry replaces them wholesale on
// rescan.
type Persona struct {
	// ID is the lower-cased lookup key.
	ID string

	// DisplayName is the name as written in the definition file.
	DisplayName string

	// Tone is the voice/style descriptor (e.g. "analytical", "soft").
	Tone string

	// Keywords and Phrases feed prompt composition.
	Keywords []string
	Phrases  []string

	// Overrides are literal text substitutions applied when styling a
	// response in this persona's voice.
	Overrides map[string]string

	// EchoAffinities lists the symbolic signal tags this persona responds
	// to (e.g. "fatigue", "dissociation_cue").
	EchoAffinities []string

	// SourceFormat and SourcePath record where the definition came from.
	SourceFormat Format
	SourcePath   string
}

// StyleResponse renders raw text in this persona's voice: overrides are
// applied in place and the persona signs the result.
func (p *Persona) StyleResponse(raw string) string {
	styled := raw
	for from, to := range p.Overrides {
		styled = strings.ReplaceAll(styled, from, to)
	}
	return styled + "\n-- [" + p.DisplayName + "]"
}

// HasAffinity reports whether the persona lists the given signal tag.
func (p *Persona) HasAffinity(tag string) bool {
	for _, a := range p.EchoAffinities {
		if strings.EqualFold(a, tag) {
			return true
		}
	}
	return false
}

// NormalizeID lower-cases and trims a persona name into a lookup key.
func NormalizeID(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
