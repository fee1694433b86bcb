//go:build onnx

package main

import (
	"log"
	"os"

	"github.com/alterego-local/alterego/memory"
	"github.com/alterego-local/alterego/memory/embedder/mock"
	"github.com/alterego-local/alterego/memory/embedder/onnx"
)

// newEmbedder builds the ONNX sentence embedder from the ALTER_EGO_MODEL
// and ALTER_EGO_TOKENIZER environment variables. When the model cannot be
// loaded it falls back to the deterministic hash embedder with a warning,
// so the assistant still starts.
func newEmbedder() memory.Embedder {
	modelPath := os.Getenv("ALTER_EGO_MODEL")
	tokenizerPath := os.Getenv("ALTER_EGO_TOKENIZER")
	if modelPath == "" || tokenizerPath == "" {
		log.Printf("[EMBED] ALTER_EGO_MODEL or ALTER_EGO_TOKENIZER unset, using hash embedder")
		return mock.New(384)
	}

	e, err := onnx.New(onnx.Config{
		ModelPath:     modelPath,
		TokenizerPath: tokenizerPath,
	})
	if err != nil {
		log.Printf("[EMBED] Failed to load ONNX model, using hash embedder: %v", err)
		return mock.New(384)
	}
	return e
}
