package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alterego-local/alterego/chaoslog"
	"github.com/alterego-local/alterego/config"
	"github.com/alterego-local/alterego/dialogue"
	"github.com/alterego-local/alterego/echo"
	"github.com/alterego-local/alterego/engine"
	"github.com/alterego-local/alterego/fronting"
	"github.com/alterego-local/alterego/ingest"
	"github.com/alterego-local/alterego/memory"
	"github.com/alterego-local/alterego/memory/store/chromem"
	"github.com/alterego-local/alterego/memory/store/sqlite"
	"github.com/alterego-local/alterego/persona"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "alterego",
		Short:         "Memory-augmented persona dialogue assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "alterego.yaml", "configuration file")

	root.AddCommand(
		newChatCmd(&configPath),
		newIngestCmd(&configPath),
		newWatchCmd(&configPath),
		newPersonasCmd(&configPath),
		newFrontCmd(&configPath),
	)
	return root
}

// app holds every wired component for one process lifetime.
type app struct {
	cfg      *config.Config
	log      *chaoslog.Store
	index    *memory.Index
	registry *persona.Registry
	front    *fronting.State
	orch     *dialogue.Orchestrator
	ingestor *ingest.Ingestor
}

// newApp wires the full stack from configuration.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	store, err := newVectorStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	catalog, err := sqlite.Open(cfg.MemoryDB)
	if err != nil {
		return nil, fmt.Errorf("open memory catalog: %w", err)
	}

	index, err := memory.NewIndex(ctx, store, catalog, newEmbedder(), &memory.Config{
		TopK:          cfg.TopK,
		MinSimilarity: memory.DefaultConfig.MinSimilarity,
		CacheCapacity: memory.DefaultConfig.CacheCapacity,
	})
	if err != nil {
		return nil, err
	}

	registry := persona.NewRegistry(cfg.PersonaRoot)
	if _, err := registry.Rescan(); err != nil {
		index.Close()
		return nil, err
	}
	front := fronting.New(registry, cfg.SwitchLogPath)

	analyzer := echo.New(&echo.Config{
		MinConfidence: cfg.MinEchoConfidence,
		WindowSize:    echo.DefaultConfig().WindowSize,
	})

	opts := []dialogue.Option{
		dialogue.WithAnalyzer(analyzer),
		dialogue.WithDummy(engine.NewDummyEngineFromFile(cfg.DummyScript)),
		dialogue.WithConfig(&dialogue.Config{
			DefaultPersona: cfg.DefaultPersona,
			DummyMode:      dialogue.DummyMode(cfg.DummyMode),
			TopK:           cfg.TopK,
		}),
	}
	primary := engine.NewClaudeBackend(&engine.ClaudeConfig{Model: cfg.Model})
	if primary.Available() {
		opts = append(opts, dialogue.WithPrimary(primary))
	}

	logStore := chaoslog.New(cfg.LogPath)

	return &app{
		cfg:      cfg,
		log:      logStore,
		index:    index,
		registry: registry,
		front:    front,
		orch:     dialogue.New(logStore, index, registry, front, opts...),
		ingestor: ingest.New(index, &ingest.Config{
			AllowedExts:  cfg.AllowedExts,
			IgnoreGlobs:  cfg.IgnoreGlobs,
			ChunkChars:   ingest.DefaultConfig().ChunkChars,
			ChunkOverlap: ingest.DefaultConfig().ChunkOverlap,
		}),
	}, nil
}

func newVectorStore(cfg *config.Config) (memory.VectorStore, error) {
	if cfg.VectorDir != "" {
		return chromem.NewPersistent(cfg.VectorDir)
	}
	return chromem.New()
}

func (a *app) Close() error {
	return a.index.Close()
}
