// Package main is the entry point for the syntrofos chat service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vmakris/syntrofos/internal/config"
	"github.com/vmakris/syntrofos/internal/httpapi"
	"github.com/vmakris/syntrofos/internal/llm"
	"github.com/vmakris/syntrofos/internal/pipeline"
	"github.com/vmakris/syntrofos/internal/prompt"
	"github.com/vmakris/syntrofos/internal/store"
	"github.com/vmakris/syntrofos/internal/telegram"
)

const telegramAPIBase = "https://api.telegram.org/bot"

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open conversation store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	generator, err := llm.NewOpenAIClient(llm.ClientConfig{
		APIKey:      cfg.GenerationProviderKey,
		Model:       cfg.GenerationModel,
		MaxTokens:   cfg.MaxReplyTokens,
		Temperature: cfg.GenerationTemperature,
		Timeout:     cfg.GenerationTimeout,
	})
	if err != nil {
		logger.Error("failed to create generation client", "error", err)
		os.Exit(1)
	}

	builder := &prompt.Builder{
		History:  st,
		Preamble: cfg.SystemPrompt,
		Depth:    cfg.HistoryDepth,
	}
	coordinator := pipeline.NewCoordinator(st, builder, generator,
		pipeline.NewCircuitBreaker(5, 30*time.Second), logger)

	api := httpapi.NewServer(coordinator, st, logger)
	root := http.NewServeMux()
	root.Handle("/", api.Routes())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.EventChannelEnabled() {
		client := telegram.NewClient(telegramAPIBase+cfg.EventChannelToken, 30*time.Second)
		bot := telegram.NewBot(client, coordinator, cfg.EventChannelWebhookSecret, logger)
		root.Handle("POST /telegram/webhook", bot.WebhookHandler())
		go bot.Run(ctx)
		logger.Info("event channel enabled")
	} else {
		logger.Info("event channel disabled: EVENT_CHANNEL_TOKEN not set")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ListenPort),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "port", cfg.ListenPort, "db", cfg.DBPath, "model", cfg.GenerationModel)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
