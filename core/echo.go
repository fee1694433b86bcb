package core

// SignalKind classifies an emotional or symbolic signal detected in text.
type SignalKind string

const (
	SignalTremor       SignalKind = "tremor"
	SignalFatigue      SignalKind = "fatigue"
	SignalDissociation SignalKind = "dissociation_cue"
	SignalPatternLoop  SignalKind = "pattern_loop"
	SignalOverload     SignalKind = "overload"
)

// EchoAnnotation is a single detected signal. Annotations are attached to a
// log entry at creation time and never mutated afterwards.
type EchoAnnotation struct {
	Kind       SignalKind
	Confidence float64 // bounded [0,1]
	Span       string  // the text fragment that triggered the signal
}
