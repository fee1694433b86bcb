package core

// ResponseSource identifies which generation path produced a response.
type ResponseSource string

const (
	// SourcePrimary means the primary generation backend answered.
	SourcePrimary ResponseSource = "primary"

	// SourceDummy means the deterministic dummy dialogue engine answered.
	SourceDummy ResponseSource = "dummy"

	// SourceGuardrail means the fixed unreachable-engine notice was returned
	// because a configured primary backend could not be used.
	SourceGuardrail ResponseSource = "guardrail"
)

// Response is the result of one complete exchange.
type Response struct {
	// ExchangeID links the USER_PROMPT and response log entries of this
	// exchange.
	ExchangeID string

	// Text is the final, persona-styled response text.
	Text string

	// PersonaID is the persona that fronted this exchange.
	PersonaID string

	// Annotations are the echo signals detected in the user's text.
	Annotations []EchoAnnotation

	// Source records which generation path produced Text.
	Source ResponseSource

	// LogErr reports a symbolic-log write failure. The response itself is
	// still valid when this is non-nil.
	LogErr error
}
