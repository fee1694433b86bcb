package dialogue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/alterego-local/alterego/core"
)

// Autosave appends a periodic presence snapshot to the symbolic log: who is
// fronting and the strongest signal of the most recent exchange. A snapshot
// carrying a high-confidence signal is recorded as an echo entry rather
// than a plain autosave, and its whisper body is indexed into semantic
// memory as well.
func (o *Orchestrator) Autosave(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry := core.LogEntry{
		Kind:         core.EventAutosave,
		Timestamp:    time.Now().UTC(),
		Context:      "autosave",
		Significance: core.SignificanceLow,
		State:        o.front.Current(),
	}
	if ann, ok := o.strongestRecent(); ok {
		entry.Kind = core.EventEcho
		entry.Significance = core.SignificanceMedium
		entry.Emotion = string(ann.Kind)
		entry.Body = fmt.Sprintf("[whisper] %s: %s", ann.Kind, ann.Span)
	}

	if _, err := o.log.Append(entry); err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	if entry.Body != "" {
		sourceID := "autosave:" + entry.Timestamp.Format(time.RFC3339Nano)
		if _, err := o.index.Index(ctx, entry.Body, sourceID); err != nil {
			log.Printf("[DIALOGUE] Failed to index autosave snapshot: %v", err)
		}
	}
	return nil
}

// strongestRecent returns the dominant annotation of the last exchange if
// it cleared the whisper threshold.
func (o *Orchestrator) strongestRecent() (core.EchoAnnotation, bool) {
	if len(o.lastAnnotations) == 0 {
		return core.EchoAnnotation{}, false
	}
	top := o.lastAnnotations[0]
	if top.Confidence < whisperThreshold {
		return core.EchoAnnotation{}, false
	}
	return top, true
}

// RunAutosave snapshots on a fixed interval until the context is cancelled.
// Failed writes are logged and retried at the next tick.
func (o *Orchestrator) RunAutosave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.Autosave(ctx); err != nil {
				log.Printf("[DIALOGUE] %v", err)
			}
		}
	}
}
