// Package config loads the YAML configuration file and applies environment
// overrides. A missing file is not an error; every field has a default
// suitable for a local install.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface of the core.
type Config struct {
	// LogPath is the symbolic log file.
	LogPath string `yaml:"log_path"`

	// SwitchLogPath is the fronting switch log.
	SwitchLogPath string `yaml:"switch_log_path"`

	// MemoryDB is the SQLite catalog path.
	MemoryDB string `yaml:"memory_db"`

	// VectorDir persists the vector store; empty keeps it in memory and
	// rehydrates from the catalog on startup.
	VectorDir string `yaml:"vector_dir"`

	// PersonaRoot is the directory scanned for persona definitions.
	PersonaRoot string `yaml:"persona_root"`

	// DefaultPersona fronts when nobody has been selected.
	DefaultPersona string `yaml:"default_persona"`

	// DummyMode is auto, on or off.
	DummyMode string `yaml:"dummy_mode"`

	// DummyScript is an optional playbook file for the dummy engine.
	DummyScript string `yaml:"dummy_script"`

	// Model is the primary backend model name.
	Model string `yaml:"model"`

	// TopK is the retrieval size per exchange.
	TopK int `yaml:"top_k"`

	// MinEchoConfidence filters weak echo annotations.
	MinEchoConfidence float64 `yaml:"min_echo_confidence"`

	// AutosaveMinutes is the presence-snapshot interval during chat.
	// Zero disables autosave.
	AutosaveMinutes int `yaml:"autosave_minutes"`

	// AllowedExts and IgnoreGlobs tune ingestion.
	AllowedExts []string `yaml:"allowed_exts"`
	IgnoreGlobs []string `yaml:"ignore_globs"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	home := dataHome()
	return &Config{
		LogPath:           filepath.Join(home, "session.chaos"),
		SwitchLogPath:     filepath.Join(home, "switches.chaos"),
		MemoryDB:          filepath.Join(home, "memory.db"),
		PersonaRoot:       filepath.Join(home, "personas"),
		DummyMode:         "auto",
		TopK:              5,
		MinEchoConfidence: 0.25,
		AutosaveMinutes:   10,
		AllowedExts:       []string{".txt", ".md", ".chaos", ".log"},
		IgnoreGlobs:       []string{".*", "*.db", "*.sqlite"},
	}
}

func dataHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".alterego"
	}
	return filepath.Join(home, ".alterego")
}

// Load reads path, falling back to defaults when it does not exist, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		log.Printf("[CONFIG] No config at %s, using defaults", path)
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	c.applyEnv()
	c.normalize()
	return c, nil
}

// applyEnv maps the recognized environment variables onto the config.
// ALTER_EGO_DUMMY_ONLY survives from the original tooling and accepts
// truthy and falsy spellings as well as the three mode names.
func (c *Config) applyEnv() {
	if v := os.Getenv("ALTER_EGO_DUMMY_ONLY"); v != "" {
		c.DummyMode = v
	}
	if v := os.Getenv("ALTER_EGO_PERSONA_ROOT"); v != "" {
		c.PersonaRoot = v
	}
	if v := os.Getenv("ALTER_EGO_MEMORY_DB"); v != "" {
		c.MemoryDB = v
	}
	if v := os.Getenv("ALTER_EGO_LOG_PATH"); v != "" {
		c.LogPath = v
	}
}

// normalize folds the dummy mode spellings into auto/on/off and clamps
// numeric knobs.
func (c *Config) normalize() {
	switch strings.ToLower(strings.TrimSpace(c.DummyMode)) {
	case "1", "true", "yes", "on":
		c.DummyMode = "on"
	case "0", "false", "no", "off":
		c.DummyMode = "off"
	case "", "auto":
		c.DummyMode = "auto"
	default:
		log.Printf("[CONFIG] Unknown dummy mode %q, using auto", c.DummyMode)
		c.DummyMode = "auto"
	}

	if c.TopK <= 0 {
		c.TopK = Default().TopK
	}
	if c.MinEchoConfidence < 0 || c.MinEchoConfidence > 1 {
		c.MinEchoConfidence = Default().MinEchoConfidence
	}
	if c.AutosaveMinutes < 0 {
		c.AutosaveMinutes = 0
	}
}
