package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/ask-console/internal/domain/history"
	"github.com/yanqian/ask-console/internal/domain/page"
	"github.com/yanqian/ask-console/internal/domain/session"
	"github.com/yanqian/ask-console/internal/infra/analytics"
	"github.com/yanqian/ask-console/internal/infra/backend"
	"github.com/yanqian/ask-console/internal/infra/config"
	"github.com/yanqian/ask-console/internal/infra/historyrepo"
	"github.com/yanqian/ask-console/internal/infra/sessionstore"
	httpiface "github.com/yanqian/ask-console/internal/interface/http"
)

func provideBackendClient(cfg *config.Config) *backend.Client {
	return backend.NewClient(cfg.Backend.BaseURL,
		backend.WithTimeout(max(cfg.Backend.Timeout, cfg.Backend.AskTimeout)),
		backend.WithPaths(backend.Paths{
			ResponseTypes: cfg.Backend.ResponseTypesPath,
			Ask:           cfg.Backend.AskPath,
			ReloadConfig:  cfg.Backend.ReloadConfigPath,
			ReloadData:    cfg.Backend.ReloadDataPath,
		}),
	)
}

func provideTracker(cfg *config.Config, logger *slog.Logger) *analytics.AsyncTracker {
	var next page.Tracker
	switch cfg.Analytics.Provider {
	case config.AnalyticsProviderGA4:
		logger.Info("ga4 analytics enabled", "measurement_id", cfg.Analytics.MeasurementID)
		next = analytics.NewGA4Tracker(cfg.Analytics.Endpoint, cfg.Analytics.MeasurementID, cfg.Analytics.APISecret, cfg.Analytics.Timeout, logger)
	case config.AnalyticsProviderNone:
		next = analytics.NopTracker{}
	default:
		next = analytics.NewLogTracker(logger)
	}
	return analytics.NewAsyncTracker(next, cfg.Analytics.QueueSize, logger)
}

func provideSessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		TTL:         cfg.Session.TTL,
		IdleTimeout: cfg.Session.IdleTimeout,
	}
}

func provideSessionStore(cfg *config.Config, logger *slog.Logger) session.Store {
	if cfg.Session.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return sessionstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return sessionstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
			client.Close()
		} else {
			logger.Info("session valkey store enabled", "addr", cfg.Session.Redis.Addr)
			return sessionstore.NewValkeyStore(client, cfg.Session.Redis.Prefix)
		}
	}
	return sessionstore.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Session.Redis.Addr, "://") {
		return valkey.ParseURL(cfg.Session.Redis.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Session.Redis.Addr}}, nil
}

func provideHistoryRepository(cfg *config.Config, logger *slog.Logger) history.Repository {
	fallback := historyrepo.NewMemoryRepository(cfg.History.MemoryLimit)
	dsn := strings.TrimSpace(cfg.History.Postgres.DSN)
	if dsn == "" {
		logger.Info("history postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.History.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.History.Postgres.MaxConns
	}
	if cfg.History.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.History.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	repo := historyrepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("history schema setup failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("history postgres repository enabled")
	return repo
}

func provideControllerFactory(cfg *config.Config, client page.Backend, tracker *analytics.AsyncTracker, repo history.Repository, logger *slog.Logger) session.ControllerFactory {
	return func(id string, view page.View, pc page.Config) *page.Controller {
		pc.AskTimeout = cfg.Backend.AskTimeout
		pc.RequestTimeout = cfg.Backend.Timeout
		return page.NewController(pc, client, view, tracker, repo, logger.With("session_id", id))
	}
}

func provideCSRFTokens(cfg *config.Config) (*httpiface.CSRFTokens, error) {
	return httpiface.NewCSRFTokens(cfg.Session.Secret, cfg.Session.TTL)
}

func providePageHandler(cfg *config.Config, manager *session.Manager, csrf *httpiface.CSRFTokens, repo history.Repository, logger *slog.Logger) *httpiface.PageHandler {
	return httpiface.NewPageHandler(manager, csrf, repo, cfg.HTTP.PageTitle, logger)
}
