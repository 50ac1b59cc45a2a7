//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/ask-console/internal/bootstrap"
	"github.com/yanqian/ask-console/internal/domain/page"
	"github.com/yanqian/ask-console/internal/domain/session"
	"github.com/yanqian/ask-console/internal/infra/backend"
	"github.com/yanqian/ask-console/internal/infra/config"
	httpiface "github.com/yanqian/ask-console/internal/interface/http"
	"github.com/yanqian/ask-console/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideBackendClient,
		provideTracker,
		provideSessionConfig,
		provideSessionStore,
		provideHistoryRepository,
		provideControllerFactory,
		provideCSRFTokens,
		providePageHandler,
		session.NewManager,
		wire.Bind(new(page.Backend), new(*backend.Client)),
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
