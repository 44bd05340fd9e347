package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denniheim/notemaker/internal/api"
	"github.com/denniheim/notemaker/internal/config"
	"github.com/denniheim/notemaker/internal/llm"
	"github.com/denniheim/notemaker/internal/pipeline"
	"github.com/denniheim/notemaker/internal/prompt"
	"github.com/denniheim/notemaker/internal/sandbox"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	box, err := sandbox.New(cfg.Roots())
	if err != nil {
		log.Error("invalid root configuration", "error", err)
		os.Exit(1)
	}

	client := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	presets := prompt.Builtin()

	orch := pipeline.NewOrchestrator(box, client, pipeline.Options{
		Presets:      presets,
		Models:       cfg.Models,
		ModelTimeout: cfg.ModelTimeout,
		RetryBackoff: cfg.RetryBackoff,
	}, log)

	srv := api.NewServer(orch, box, presets, log, cfg)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv,
		ReadTimeout: 60 * time.Second,
		// Generation holds the response open for the whole model call.
		WriteTimeout: cfg.ModelTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		client.Close()
	}()

	log.Info("starting notemaker", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
