// Package memory provides the semantic memory index.
//
// Raw text (user prompts, autosaves, ingested files) becomes Chunks:
// immutable records carrying the original text, a fixed-dimension embedding
// vector and their origin. Chunks are never mutated, only superseded;
// duplicates are detected by content hash and collapsed at index time.
//
// Architecture:
//   - VectorStore: similarity search backend (chromem-go, embedded)
//   - Catalog: durable chunk records and the dedup tables (SQLite)
//   - Embedder: text-to-vector conversion, injected as a black box
//   - Index: ties the three together and enforces idempotent ingest
//
// Similarity is cosine over the embedding space. Query results are ordered
// by descending similarity with ties broken by most recent creation time.
package memory
