// Package sqlite implements the memory catalog on SQLite: durable chunk
// rows plus the content-hash and file-hash dedup tables.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alterego-local/alterego/memory"
)

// Catalog implements memory.Catalog.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at the given path.
func Open(dbPath string) (*Catalog, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return c, nil
}

func (c *Catalog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id           TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL UNIQUE,
		source_id    TEXT NOT NULL,
		text         TEXT NOT NULL,
		embedding    BLOB,
		created_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_created ON chunks(created_at);

	CREATE TABLE IF NOT EXISTS ingested_files (
		file_hash   TEXT PRIMARY KEY,
		path        TEXT NOT NULL,
		ingested_at TEXT NOT NULL
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// SeenChunk looks up a content hash in the dedup table.
func (c *Catalog) SeenChunk(ctx context.Context, hash string) (string, bool, error) {
	var id string
	err := c.db.QueryRowContext(ctx,
		`SELECT id FROM chunks WHERE content_hash = ?`, hash).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// RecordChunk persists one chunk row keyed by its content hash.
func (c *Catalog) RecordChunk(ctx context.Context, hash string, chunk memory.Chunk) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO chunks (id, content_hash, source_id, text, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		chunk.ID, hash, chunk.SourceID, chunk.Text,
		encodeVector(chunk.Embedding),
		chunk.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// SeenFile reports whether a whole-file hash was ingested before.
func (c *Catalog) SeenFile(ctx context.Context, hash string) (bool, error) {
	var path string
	err := c.db.QueryRowContext(ctx,
		`SELECT path FROM ingested_files WHERE file_hash = ?`, hash).Scan(&path)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordFile marks a whole-file hash as ingested. Re-recording the same
// hash under a new path is a no-op; the first path wins.
func (c *Catalog) RecordFile(ctx context.Context, hash string, path string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO ingested_files (file_hash, path, ingested_at)
		 VALUES (?, ?, ?)`,
		hash, path, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Chunks returns every recorded chunk, oldest first.
func (c *Catalog) Chunks(ctx context.Context) ([]memory.Chunk, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, source_id, text, embedding, created_at
		 FROM chunks ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []memory.Chunk
	for rows.Next() {
		var (
			chunk     memory.Chunk
			embedding []byte
			createdAt string
		)
		if err := rows.Scan(&chunk.ID, &chunk.SourceID, &chunk.Text, &embedding, &createdAt); err != nil {
			return nil, err
		}
		chunk.Embedding = decodeVector(embedding)
		chunk.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("chunk %s has bad created_at: %w", chunk.ID, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Close closes the database.
func (c *Catalog) Close() error { return c.db.Close() }

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks little-endian bytes into a float32 slice.
func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
