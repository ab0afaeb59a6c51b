package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/bookgest/internal/analyze"
	"github.com/dgallion1/bookgest/internal/api"
	"github.com/dgallion1/bookgest/internal/config"
	"github.com/dgallion1/bookgest/internal/llm"
	"github.com/dgallion1/bookgest/internal/pipeline"
	"github.com/dgallion1/bookgest/internal/script"
	"github.com/dgallion1/bookgest/internal/translate"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	normalizer, err := script.NewOpenCC("s2tw")
	if err != nil {
		log.Error("opencc init failed", "error", err)
		os.Exit(1)
	}

	client := llm.NewClient(cfg, log)
	analyzer := analyze.NewAnalyzer(client, normalizer, cfg, log)

	var translator pipeline.Translator
	var deepl *translate.Client
	if cfg.Translate {
		deepl = translate.NewClient(cfg, log)
		translator = deepl
	}

	orch := pipeline.NewOrchestrator(cfg, analyzer, translator, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, client, log, cfg)

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

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		client.Close()
		if deepl != nil {
			deepl.Close()
		}
	}()

	log.Info("starting bookgest", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
