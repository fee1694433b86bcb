//go:build !onnx

package main

import (
	"github.com/alterego-local/alterego/memory"
	"github.com/alterego-local/alterego/memory/embedder/mock"
)

// newEmbedder returns the deterministic hash embedder. Build with the onnx
// tag to use a local sentence-transformer model instead.
func newEmbedder() memory.Embedder {
	return mock.New(384)
}
