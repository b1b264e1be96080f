package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/mathdocx/internal/analysis"
	"github.com/dgallion1/mathdocx/internal/api"
	"github.com/dgallion1/mathdocx/internal/config"
	"github.com/dgallion1/mathdocx/internal/docbuild"
	"github.com/dgallion1/mathdocx/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	style := docbuild.DefaultStyle()
	if cfg.StyleFile != "" {
		s, err := docbuild.LoadStyle(cfg.StyleFile)
		if err != nil {
			log.Error("invalid style file", "path", cfg.StyleFile, "error", err)
			os.Exit(1)
		}
		style = s
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	claude := analysis.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL, cfg.AnalysisTimeout)
	builder := docbuild.NewBuilder(style, cfg.MaxMathDepth, log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, claude, builder, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, claude, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Stop taking uploads before the queue closes.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		claude.Close()
	}()

	log.Info("starting mathdocx", "port", cfg.Port, "model", cfg.AnthropicModel, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
