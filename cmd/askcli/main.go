package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yanqian/ask-console/internal/domain/page"
	"github.com/yanqian/ask-console/internal/infra/analytics"
	"github.com/yanqian/ask-console/internal/infra/backend"
	"github.com/yanqian/ask-console/internal/infra/historyrepo"
	"github.com/yanqian/ask-console/internal/interface/console"
	"github.com/yanqian/ask-console/pkg/logger"
)

func main() {
	var (
		baseURL      = flag.String("backend", envOr("BACKEND_BASE_URL", "http://localhost:5000"), "answer backend base URL")
		responseType = flag.String("type", "", "preferred response type")
		csrfToken    = flag.String("csrf", os.Getenv("ASK_CSRF_TOKEN"), "token sent as X-CSRFToken on ask")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger := logger.New()
	view := console.NewView(os.Stdout)
	tracker := analytics.NewAsyncTracker(analytics.NewLogTracker(appLogger), 0, appLogger)
	defer func() { _ = tracker.Close(context.Background()) }()

	ctrl := page.NewController(
		page.Config{SessionID: "console", PreferredResponseType: *responseType},
		backend.NewClient(*baseURL),
		view,
		tracker,
		historyrepo.NewMemoryRepository(0),
		appLogger,
	)
	defer ctrl.Close()

	if err := ctrl.Init(ctx); err != nil {
		log.Printf("could not load response types: %v", err)
	}

	repl := console.NewREPL(ctrl, os.Stdout, *csrfToken, appLogger)
	if err := repl.Run(ctx, os.Stdin); err != nil {
		log.Fatalf("console stopped with error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
