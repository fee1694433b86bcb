package persona

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry holds every known persona. It is read-mostly: lookups take a
// read lock and mutation happens only through Rescan, which replaces the
// whole set atomically.
type Registry struct {
	mu       sync.RWMutex
	root     string
	personas map[string]*Persona
}

// NewRegistry creates an empty registry rooted at the given persona
// directory. Call Rescan to load definitions.
func NewRegistry(root string) *Registry {
	return &Registry{
		root:     root,
		personas: make(map[string]*Persona),
	}
}

// Rescan walks the persona root and reloads every parseable definition,
// returning how many personas were loaded. A definition that fails to parse
// is skipped with a warning; a missing root is an error.
func (r *Registry) Rescan() (int, error) {
	loaded := make(map[string]*Persona)

	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".chaos", ".json", ".yaml", ".yml":
		default:
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[PERSONA] Skipping unreadable %s: %v", path, err)
			return nil
		}
		p, err := Decode(path, data)
		if err != nil {
			log.Printf("[PERSONA] Skipping unparseable %s: %v", path, err)
			return nil
		}
		if prev, ok := loaded[p.ID]; ok {
			log.Printf("[PERSONA] Duplicate persona %q (%s replaces %s)", p.ID, path, prev.SourcePath)
		}
		loaded[p.ID] = p
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan persona root %s: %w", r.root, err)
	}

	r.mu.Lock()
	r.personas = loaded
	r.mu.Unlock()

	log.Printf("[PERSONA] Loaded %d personas from %s", len(loaded), r.root)
	return len(loaded), nil
}

// Get looks up a persona by id (case-insensitive).
func (r *Registry) Get(id string) (*Persona, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.personas[NormalizeID(id)]
	return p, ok
}

// List returns all personas sorted by id.
func (r *Registry) List() []*Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Persona, 0, len(r.personas))
	for _, p := range r.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
