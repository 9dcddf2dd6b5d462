package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/localmem/memsys/internal/breaker"
	"github.com/localmem/memsys/internal/config"
	"github.com/localmem/memsys/internal/consolidate"
	"github.com/localmem/memsys/internal/embed"
	"github.com/localmem/memsys/internal/fsrs"
	"github.com/localmem/memsys/internal/graph"
	"github.com/localmem/memsys/internal/llm"
	"github.com/localmem/memsys/internal/maintenance"
	"github.com/localmem/memsys/internal/memory"
	"github.com/localmem/memsys/internal/promote"
	"github.com/localmem/memsys/internal/search"
	"github.com/localmem/memsys/internal/store"
)

// app bundles every component a CLI command might need. Commands open
// their own app rather than sharing a global so each cobra.Command stays
// independently testable.
type app struct {
	cfg          config.Config
	mem          *memory.Store
	db           *store.DB
	search       *search.Engine
	graph        *graph.Graph
	promoter     *promote.Engine
	sharer       *promote.Sharer
	review       *fsrs.Scheduler
	maint        *maintenance.Runner
	consolidator *consolidate.Consolidator
}

func (a *app) Close() error {
	return a.db.Close()
}

// openApp loads config and wires every component against the on-disk
// memory store and sidecar database.
func openApp() (*app, error) {
	cfg, err := config.Load(os.Getenv("MEMSYS_CONFIG"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	mem, err := memory.New(cfg.Memory.MemoryDir)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	embedder := buildEmbedder(cfg)

	se := search.New(mem, db, embedder, cfg.Search)
	mem.OnWrite(func(id, content string) {
		if err := se.InvalidateForID(id); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cache invalidation failed for %s: %v\n", id, err)
		}
	})
	gr := graph.New(db)
	pr := promote.New(mem, db)
	sh := promote.NewSharer(mem, db)
	rv := fsrs.New(db)
	mt := maintenance.New(mem, db, pr, cfg.Memory.StaleThresholdDays, cfg.Memory.ArchiveThreshold)

	var llmClient llm.Client
	if cfg.LLM.Enabled {
		llmClient, err = llm.NewClient(cfg.LLM)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: LLM disabled (%v)\n", err)
		}
	}
	br := breaker.New("llm-extraction", cfg.Breaker.FailureThreshold, time.Duration(cfg.Breaker.RecoveryTimeoutS)*time.Second, db)
	consolidator := consolidate.New(mem, llmClient, br, se, rv, gr, cfg.Memory, llmClient != nil)

	return &app{
		cfg:          cfg,
		mem:          mem,
		db:           db,
		search:       se,
		graph:        gr,
		promoter:     pr,
		sharer:       sh,
		review:       rv,
		maint:        mt,
		consolidator: consolidator,
	}, nil
}

// buildEmbedder probes for a local Ollama instance serving the
// configured embedding model, falling back to the TF-IDF embedder
// built from whatever's already in the memory store.
func buildEmbedder(cfg config.Config) embed.Embedder {
	if embed.ProbeOllama(cfg.LLM.OllamaURL, cfg.LLM.EmbeddingModel) {
		return embed.NewOllamaEmbedder(cfg.LLM.OllamaURL, cfg.LLM.EmbeddingModel, 384)
	}

	var docs []string
	if mem, err := memory.New(cfg.Memory.MemoryDir); err == nil {
		if metas, err := mem.List(memory.Filters{IncludeArchived: true}); err == nil {
			for _, m := range metas {
				if rec, err := mem.Read(m.ID); err == nil {
					docs = append(docs, rec.Content)
				}
			}
		}
	}
	return embed.NewTFIDFEmbedder(docs, 384)
}
