// Package dialogue orchestrates one exchange at a time: echo analysis,
// persona resolution, memory retrieval, prompt composition, backend
// dispatch and the paired log writes that record the outcome.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/alterego-local/alterego/core"
	"github.com/alterego-local/alterego/echo"
	"github.com/alterego-local/alterego/engine"
	"github.com/alterego-local/alterego/fronting"
	"github.com/alterego-local/alterego/memory"
	"github.com/alterego-local/alterego/persona"
)

// GuardrailMessage is returned verbatim whenever a configured primary
// backend cannot be reached. The dummy engine never silently stands in for
// a broken primary voice.
const GuardrailMessage = "The primary engine is unreachable right now. I'm still here, but I can't reach my deeper voice."

// DummyMode controls when the scripted engine speaks.
type DummyMode string

const (
	// DummyAuto uses the dummy engine only when no primary backend was
	// ever configured. A configured-but-unreachable primary yields the
	// guardrail message instead.
	DummyAuto DummyMode = "auto"

	// DummyOn never touches the primary backend.
	DummyOn DummyMode = "on"

	// DummyOff disables the scripted engine entirely.
	DummyOff DummyMode = "off"
)

// whisperThreshold is the confidence at which an echo annotation earns a
// whisper aside in the log body and HIGH significance.
const whisperThreshold = 0.75

// maxMemoryChars bounds each retrieved fragment woven into the prompt.
const maxMemoryChars = 240

// Memory is the semantic index surface the orchestrator needs: retrieval
// for prompt composition, and indexing so every exchange and autosave
// snapshot becomes retrievable memory. *memory.Index satisfies it.
type Memory interface {
	Index(ctx context.Context, text string, sourceID string) (string, error)
	Query(ctx context.Context, text string, k int) ([]memory.Result, error)
}

// LogAppender is the durable log surface. *chaoslog.Store satisfies it.
type LogAppender interface {
	Append(entry core.LogEntry) (int64, error)
}

// PersonaDirectory resolves and enumerates personas. *persona.Registry
// satisfies it.
type PersonaDirectory interface {
	Get(id string) (*persona.Persona, bool)
	List() []*persona.Persona
}

// Config tunes the orchestrator.
type Config struct {
	// DefaultPersona fronts when nobody has been selected yet.
	DefaultPersona string

	// DummyMode defaults to DummyAuto.
	DummyMode DummyMode

	// TopK is how many memory fragments each exchange retrieves.
	TopK int
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() *Config {
	return &Config{
		DummyMode: DummyAuto,
		TopK:      5,
	}
}

// Orchestrator is the hub. It processes exchanges strictly one at a time;
// the mutex serializes both the pipeline and the paired log writes.
type Orchestrator struct {
	log      LogAppender
	index    Memory
	personas PersonaDirectory
	front    *fronting.State
	analyzer *echo.Analyzer
	primary  engine.Generator
	dummy    engine.Generator
	policy   echo.SwitchPolicy
	config   *Config

	mu sync.Mutex

	// lastAnnotations feed the autosave snapshots.
	lastAnnotations []core.EchoAnnotation
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithPrimary injects the primary generation backend. Leaving it unset
// means no primary voice was ever configured.
func WithPrimary(g engine.Generator) Option {
	return func(o *Orchestrator) { o.primary = g }
}

// WithDummy replaces the scripted engine.
func WithDummy(g engine.Generator) Option {
	return func(o *Orchestrator) { o.dummy = g }
}

// WithAnalyzer replaces the echo analyzer.
func WithAnalyzer(a *echo.Analyzer) Option {
	return func(o *Orchestrator) { o.analyzer = a }
}

// WithSwitchPolicy replaces the auto-switch decision function. Pass nil to
// disable autonomous switching.
func WithSwitchPolicy(p echo.SwitchPolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithConfig replaces the orchestrator config.
func WithConfig(c *Config) Option {
	return func(o *Orchestrator) { o.config = c }
}

// New wires an orchestrator. log, index, personas and front are required;
// everything else has a sensible default.
func New(logStore LogAppender, index Memory, personas PersonaDirectory, front *fronting.State, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		log:      logStore,
		index:    index,
		personas: personas,
		front:    front,
		analyzer: echo.New(nil),
		dummy:    engine.NewDummyEngine(nil),
		policy:   echo.DefaultSwitchPolicy,
		config:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.config.DummyMode == "" {
		o.config.DummyMode = DummyAuto
	}
	if o.config.TopK <= 0 {
		o.config.TopK = DefaultConfig().TopK
	}
	return o
}

// HandleExchange runs one full exchange. Retrieval failure aborts before
// any log write; a log-write failure after generation is reported on the
// response but does not invalidate it.
func (o *Orchestrator) HandleExchange(ctx context.Context, userText string) (*core.Response, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	annotations := o.analyzer.Analyze(userText)
	o.lastAnnotations = annotations
	p := o.resolvePersona(annotations)

	results, err := o.index.Query(ctx, userText, o.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("query memory: %w", err)
	}

	pc := personaContext(p, results)
	text, source := o.dispatch(ctx, userText, pc)
	if p != nil && source != core.SourceGuardrail {
		text = p.StyleResponse(text)
	}

	resp := &core.Response{
		ExchangeID:  uuid.NewString(),
		Text:        text,
		Annotations: annotations,
		Source:      source,
	}
	if p != nil {
		resp.PersonaID = p.ID
	}
	resp.LogErr = o.recordExchange(resp, userText, annotations)
	o.saveChatNote(ctx, userText, resp)
	return resp, nil
}

// maxNoteChars bounds the answer portion of a chat memory note.
const maxNoteChars = 600

// saveChatNote indexes a compact note of the exchange so later retrieval
// covers prior conversation, not just ingested files. The guardrail notice
// is not a real answer and is left out of the note. Indexing failure is
// non-fatal; the response stands.
func (o *Orchestrator) saveChatNote(ctx context.Context, userText string, resp *core.Response) {
	note := "Q: " + userText
	if resp.Source != core.SourceGuardrail {
		note += "\nA: " + cutAtRuneBoundary(resp.Text, maxNoteChars)
	}
	if _, err := o.index.Index(ctx, note, "chat:"+resp.ExchangeID); err != nil {
		log.Printf("[DIALOGUE] Failed to index chat note: %v", err)
	}
}

// resolvePersona returns the fronting persona, seating the default first
// if nobody fronts yet, then lets the switch policy react to the signals.
func (o *Orchestrator) resolvePersona(annotations []core.EchoAnnotation) *persona.Persona {
	current := o.front.Current()
	if current == "" && o.config.DefaultPersona != "" {
		if _, err := o.front.SwitchTo(o.config.DefaultPersona, core.TriggerPrompted, "default persona"); err != nil {
			log.Printf("[DIALOGUE] Default persona unavailable: %v", err)
		} else {
			current = o.front.Current()
		}
	}

	if o.policy != nil {
		if target, ok := o.policy(current, annotations, o.personas.List()); ok {
			if _, err := o.front.SwitchTo(target, core.TriggerAutonomous, "echo signal"); err != nil {
				log.Printf("[DIALOGUE] Auto-switch to %q failed: %v", target, err)
			} else {
				current = target
			}
		}
	}

	if current == "" {
		return nil
	}
	p, ok := o.personas.Get(current)
	if !ok {
		return nil
	}
	return p
}

// dispatch picks the voice per the dummy mode. A configured primary that
// fails at call time is treated as unavailable and yields the guardrail.
func (o *Orchestrator) dispatch(ctx context.Context, prompt string, pc engine.PersonaContext) (string, core.ResponseSource) {
	switch o.config.DummyMode {
	case DummyOn:
		return o.dummyReply(ctx, prompt, pc)

	case DummyOff:
		if o.primary == nil {
			return GuardrailMessage, core.SourceGuardrail
		}
		return o.primaryReply(ctx, prompt, pc)

	default: // DummyAuto
		if o.primary == nil {
			return o.dummyReply(ctx, prompt, pc)
		}
		return o.primaryReply(ctx, prompt, pc)
	}
}

func (o *Orchestrator) primaryReply(ctx context.Context, prompt string, pc engine.PersonaContext) (string, core.ResponseSource) {
	text, err := o.primary.Generate(ctx, prompt, pc)
	if err != nil {
		log.Printf("[DIALOGUE] Primary backend failed, using guardrail: %v", err)
		return GuardrailMessage, core.SourceGuardrail
	}
	return text, core.SourcePrimary
}

func (o *Orchestrator) dummyReply(ctx context.Context, prompt string, pc engine.PersonaContext) (string, core.ResponseSource) {
	if o.dummy == nil {
		return GuardrailMessage, core.SourceGuardrail
	}
	text, err := o.dummy.Generate(ctx, prompt, pc)
	if err != nil {
		log.Printf("[DIALOGUE] Dummy engine failed, using guardrail: %v", err)
		return GuardrailMessage, core.SourceGuardrail
	}
	return text, core.SourceDummy
}

// recordExchange appends the paired prompt and response entries sharing
// one exchange id. Both appends are attempted even when the first fails,
// so a transient write error cannot leave the response unrecorded when the
// prompt write failed; the joined errors are returned and the response
// stands either way.
func (o *Orchestrator) recordExchange(resp *core.Response, userText string, annotations []core.EchoAnnotation) error {
	contextTag := "exchange:" + resp.ExchangeID
	now := time.Now().UTC()

	promptEntry := core.LogEntry{
		Kind:         core.EventUserPrompt,
		Timestamp:    now,
		Context:      contextTag,
		Significance: significanceOf(annotations),
		Body:         promptBody(userText, annotations),
	}
	if len(annotations) > 0 {
		promptEntry.Emotion = string(annotations[0].Kind)
	}

	responseEntry := core.LogEntry{
		Kind:         core.EventResponse,
		Timestamp:    now,
		Context:      contextTag,
		Significance: core.SignificanceLow,
		State:        resp.PersonaID,
		Summary:      string(resp.Source),
		Body:         resp.Text,
	}

	_, promptErr := o.log.Append(promptEntry)
	if promptErr != nil {
		promptErr = fmt.Errorf("record prompt: %w", promptErr)
	}
	_, respErr := o.log.Append(responseEntry)
	if respErr != nil {
		respErr = fmt.Errorf("record response: %w", respErr)
	}
	return errors.Join(promptErr, respErr)
}

// promptBody is the user text plus a whisper aside for any high-confidence
// signal.
func promptBody(userText string, annotations []core.EchoAnnotation) string {
	body := userText
	for _, ann := range annotations {
		if ann.Confidence >= whisperThreshold {
			body += fmt.Sprintf("\n[whisper] %s: %s", ann.Kind, ann.Span)
			break
		}
	}
	return body
}

func significanceOf(annotations []core.EchoAnnotation) core.Significance {
	if len(annotations) == 0 {
		return core.SignificanceLow
	}
	if annotations[0].Confidence >= whisperThreshold {
		return core.SignificanceHigh
	}
	return core.SignificanceMedium
}

// personaContext assembles the generation context, bounding each memory
// fragment so the composed prompt stays small.
func personaContext(p *persona.Persona, results []memory.Result) engine.PersonaContext {
	pc := engine.PersonaContext{}
	if p != nil {
		pc.ID = p.ID
		pc.DisplayName = p.DisplayName
		pc.Tone = p.Tone
		pc.Phrases = p.Phrases
	}
	for _, r := range results {
		text := cutAtRuneBoundary(strings.TrimSpace(r.Chunk.Text), maxMemoryChars)
		if text != "" {
			pc.Memories = append(pc.Memories, text)
		}
	}
	return pc
}

// cutAtRuneBoundary truncates s to at most n bytes without splitting a
// multi-byte rune.
func cutAtRuneBoundary(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// StartSession records a session_start entry and clears the echo window.
// The log write is best-effort.
func (o *Orchestrator) StartSession() {
	o.mu.Lock()
	o.lastAnnotations = nil
	o.mu.Unlock()
	o.analyzer.Reset()
	if _, err := o.log.Append(core.LogEntry{
		Kind:         core.EventSessionStart,
		Timestamp:    time.Now().UTC(),
		Context:      "session",
		Significance: core.SignificanceLow,
	}); err != nil {
		log.Printf("[DIALOGUE] Failed to record session start: %v", err)
	}
}

// EndSession records a session_end entry. Best-effort, like StartSession.
func (o *Orchestrator) EndSession() {
	if _, err := o.log.Append(core.LogEntry{
		Kind:         core.EventSessionEnd,
		Timestamp:    time.Now().UTC(),
		Context:      "session",
		Significance: core.SignificanceLow,
	}); err != nil {
		log.Printf("[DIALOGUE] Failed to record session end: %v", err)
	}
}
