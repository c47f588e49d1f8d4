// Package app wires configuration, storage, providers, and the retrieval
// engine into a running application.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorra0/sage/internal/config"
	"github.com/quorra0/sage/internal/corpus"
	"github.com/quorra0/sage/internal/database"
	"github.com/quorra0/sage/internal/graph"
	"github.com/quorra0/sage/internal/ingest"
	"github.com/quorra0/sage/internal/provider"
	"github.com/quorra0/sage/internal/rag"
	"github.com/quorra0/sage/internal/session"
	"github.com/quorra0/sage/internal/vectorstore"
)

// App holds the initialized application components. Create with Setup and
// release with Close.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DBPool   *pgxpool.Pool
	Store    vectorstore.Store
	Provider *provider.GenkitProvider
	Sessions session.Store
	Graph    *graph.Graph
	Builder  *graph.Builder
	Engine   *rag.Engine
	Pipeline *ingest.Pipeline
}

// Setup creates and initializes the application. On error, everything
// already initialized is released.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if cfg.NeedsPostgres() {
		pool, err := database.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.DBPool = pool
	}

	store, err := vectorstore.New(cfg, a.DBPool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	a.Store = store

	p, err := provider.NewGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing AI provider: %w", err)
	}
	a.Provider = p

	if a.DBPool != nil {
		a.Sessions = session.NewPostgresStore(a.DBPool, logger)
	} else {
		a.Sessions = session.NewMemoryStore()
	}

	g, err := graph.Load(cfg.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge graph: %w", err)
	}
	a.Graph = g
	a.Builder = graph.NewBuilder(g, graph.NewRegexExtractor(), logger)

	retry := rag.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries

	a.Engine = rag.New(store, p.Embedder, p.Generator, logger,
		rag.WithSessionStore(a.Sessions),
		rag.WithTopK(cfg.TopK),
		rag.WithHistoryBudget(cfg.HistoryBudgetChars),
		rag.WithRateLimit(cfg.RequestsPerMinute),
		rag.WithRetry(retry),
	)

	chunker := corpus.NewChunker(
		corpus.WithChunkSize(cfg.ChunkSize),
		corpus.WithOverlap(cfg.ChunkOverlap),
	)
	a.Pipeline = ingest.New(store, p.Embedder, chunker, logger,
		ingest.WithWorkers(cfg.IngestWorkers),
		ingest.WithGraphBuilder(a.Builder),
	)

	return a, nil
}

// SaveGraph persists the knowledge graph snapshot to the configured path.
func (a *App) SaveGraph() error {
	if a.Graph == nil {
		return nil
	}
	return graph.Save(a.Graph, a.Config.GraphPath)
}

// Close releases application resources in reverse initialization order.
func (a *App) Close() error {
	var firstErr error

	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing vector store: %w", err)
		}
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	return firstErr
}
