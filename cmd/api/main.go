package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contentengine/internal/config"
	"contentengine/internal/engine"
	"contentengine/internal/llm"
	"contentengine/internal/trends"
	transporthttp "contentengine/internal/transport/http"
)

const (
	pruneInterval = time.Hour
	signalMaxAge  = 7 * 24 * time.Hour
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("content api stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	chain, err := buildProviders(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer chain.close()

	e, err := engine.New(catalog,
		engine.WithTrendProvider(chain.provider),
		engine.WithTrendTimeout(cfg.TrendTimeout),
		engine.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	go chain.pruneLoop(ctx, logger)

	server := transporthttp.NewServer(e, cfg, chain.sink)
	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("content api listening", "addr", cfg.ListenAddr, "trend_provider", chain.provider.Name())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("signal received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	return nil
}

func loadCatalog(path string) (engine.Catalog, error) {
	if path == "" {
		return engine.DefaultCatalog()
	}
	return engine.LoadCatalog(path)
}

type providerChain struct {
	provider trends.Provider
	sink     transporthttp.TrendSink
	ingest   *trends.IngestProvider
	store    *trends.SQLiteStore
	closers  []func() error
}

func (c *providerChain) close() {
	for _, fn := range c.closers {
		_ = fn()
	}
}

// buildProviders assembles the trend sources: the snapshot file, signals
// posted to the API (kept in SQLite when configured), an optional model-backed
// rater and an optional Redis cache in front of all of them.
func buildProviders(ctx context.Context, cfg config.Config, logger *slog.Logger) (*providerChain, error) {
	chain := &providerChain{}

	var providers []trends.Provider
	var static trends.Provider
	if cfg.TrendSnapshotPath != "" {
		snapshot, err := trends.NewStaticFileProvider("snapshot", cfg.TrendSnapshotPath)
		if err != nil {
			return nil, err
		}
		static = snapshot
		providers = append(providers, snapshot)
	}

	if cfg.SQLitePath != "" {
		store, err := trends.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		chain.store = store
		chain.sink = store
		chain.closers = append(chain.closers, store.Close)
		providers = append(providers, store)
	} else {
		chain.ingest = trends.NewIngestProvider("ingest")
		chain.sink = chain.ingest
		providers = append(providers, chain.ingest)
	}

	if cfg.LLMEnabled() {
		client := llm.NewClient(cfg.LLMAPIKey, llm.WithBaseURL(cfg.LLMBaseURL), llm.WithTimeout(cfg.TrendTimeout))
		rater := &trends.LLMProvider{
			Client:      client,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
			MaxKeywords: cfg.LLMMaxKeywords,
			Fallback:    static,
			Logger:      logger.With("component", "llm_trends"),
		}
		limited, err := trends.NewRateLimited(rater, cfg.LLMRatePerSecond, cfg.LLMBurst)
		if err != nil {
			return nil, err
		}
		providers = append(providers, limited)
		logger.Info("llm trend ratings enabled", "model", cfg.LLMModel)
	}

	registry, err := trends.NewRegistry(providers...)
	if err != nil {
		return nil, err
	}
	chain.provider = registry

	if cfg.RedisURL != "" {
		client, err := trends.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("trend cache disabled", "error", err)
			return chain, nil
		}
		chain.closers = append(chain.closers, client.Close)
		cached, err := trends.NewRedisCache(client, registry, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		chain.provider = cached
		chain.sink = cached.RecordThrough(chain.sink)
		logger.Info("trend cache enabled", "ttl", cfg.CacheTTL)
	}
	return chain, nil
}

func (c *providerChain) pruneLoop(ctx context.Context, logger *slog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cutoff := now.Add(-signalMaxAge)
			if c.ingest != nil {
				if n := c.ingest.PruneOlderThan(cutoff); n > 0 {
					logger.Info("pruned trend signals", "removed", n)
				}
			}
			if c.store != nil {
				n, err := c.store.Prune(ctx, cutoff)
				if err != nil {
					logger.Warn("prune trend store", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("pruned trend signals", "removed", n)
				}
			}
		}
	}
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
