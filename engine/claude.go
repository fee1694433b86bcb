package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeConfig configures the primary backend.
type ClaudeConfig struct {
	// APIKey falls back to the ANTHROPIC_API_KEY environment variable.
	APIKey string

	// Model defaults to DefaultClaudeModel.
	Model string

	// MaxTokens defaults to 1024.
	MaxTokens int
}

// DefaultClaudeModel is used when no model is configured.
const DefaultClaudeModel = "claude-sonnet-4-5"

// ClaudeBackend generates responses through the Anthropic API. Constructing
// it without credentials is fine; Generate reports ErrBackendUnavailable
// instead of failing at load time.
type ClaudeBackend struct {
	client     anthropic.Client
	configured bool
	model      string
	maxTokens  int
}

// NewClaudeBackend creates the backend. A nil config reads everything from
// the environment.
func NewClaudeBackend(config *ClaudeConfig) *ClaudeBackend {
	if config == nil {
		config = &ClaudeConfig{}
	}
	key := config.APIKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	model := config.Model
	if model == "" {
		model = DefaultClaudeModel
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	b := &ClaudeBackend{model: model, maxTokens: maxTokens}
	if key == "" {
		log.Printf("[ENGINE] No Anthropic API key configured, primary backend offline")
		return b
	}
	b.client = anthropic.NewClient(option.WithAPIKey(key))
	b.configured = true
	return b
}

// Available reports whether the backend has credentials. It does not probe
// the network.
func (b *ClaudeBackend) Available() bool {
	return b.configured
}

// Generate sends the prompt with a persona system prompt and returns the
// text of the reply. Transport failures surface as ErrBackendUnavailable so
// callers can fall back.
func (b *ClaudeBackend) Generate(ctx context.Context, prompt string, pc PersonaContext) (string, error) {
	if !b.configured {
		return "", fmt.Errorf("no API key: %w", ErrBackendUnavailable)
	}

	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(b.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(pc)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request: %v: %w", err, ErrBackendUnavailable)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("empty completion: %w", ErrBackendUnavailable)
	}
	return text, nil
}

// systemPrompt renders the persona context as the system prompt.
func systemPrompt(pc PersonaContext) string {
	var sb strings.Builder
	name := pc.DisplayName
	if name == "" {
		name = "the assistant"
	}
	fmt.Fprintf(&sb, "You are %s, a persona in a memory-augmented dialogue system.", name)
	if pc.Tone != "" {
		fmt.Fprintf(&sb, " Your tone is %s.", pc.Tone)
	}
	if len(pc.Phrases) > 0 {
		fmt.Fprintf(&sb, " Phrases you might reach for: %s.", strings.Join(pc.Phrases, "; "))
	}
	if len(pc.Memories) > 0 {
		sb.WriteString("\n\nRelevant remembered fragments, most relevant first:\n")
		for _, m := range pc.Memories {
			fmt.Fprintf(&sb, "- %s\n", m)
		}
	}
	sb.WriteString("\nStay in voice. Answer the user directly.")
	return sb.String()
}
