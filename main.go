package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/memohub/memo-gateway/internal/channel"
	"github.com/memohub/memo-gateway/internal/channel/telegram"
	"github.com/memohub/memo-gateway/internal/config"
	"github.com/memohub/memo-gateway/internal/gemini"
	"github.com/memohub/memo-gateway/internal/logging"
	"github.com/memohub/memo-gateway/internal/menu"
	"github.com/memohub/memo-gateway/internal/orchestrator"
	"github.com/memohub/memo-gateway/internal/scheduler"
	"github.com/memohub/memo-gateway/internal/server"
	"github.com/memohub/memo-gateway/internal/state"
	"github.com/memohub/memo-gateway/internal/synth"
	"github.com/memohub/memo-gateway/internal/tts"
)

const version = "1.0.0"

const infoText = "🤖 *Memo Gateway*\n" +
	"Ассистент с памятью на базе Gemini.\n\n" +
	"Команды:\n" +
	"/start — перезапуск\n" +
	"/new имя — новый проект\n" +
	"/reset — очистить память текущего контекста"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	flag.Parse()

	logger := logging.WithComponent("main")
	logger.Info("Starting Memo-Gateway", "version", version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}
	logger.Info("Configuration loaded", "model", cfg.Gemini.Model)

	ctx := context.Background()

	store := state.NewStore(cfg.Bot.MaxTurns)

	backend := gemini.NewClient(&cfg.Gemini)

	voicePool := synth.NewPool(
		cfg.Voice.Workers,
		tts.NewClient(),
		logging.WithComponent("synth"),
		cfg.Voice.DefaultLang,
		cfg.Voice.MaxTextChars,
	)

	orch := orchestrator.New(store, backend, voicePool, cfg.Bot.Persona, logging.WithComponent("orchestrator"))

	menuCtl := menu.New(store, infoText)

	adapters := []channel.Adapter{
		telegram.NewBot(cfg.Telegram.Token, store, orch, menuCtl, logging.WithComponent("telegram")),
	}
	for _, adapter := range adapters {
		if err := adapter.Start(ctx); err != nil {
			logger.Error("Failed to start adapter", "adapter", adapter.Name(), "error", err)
			os.Exit(1)
		}
		logger.Info("Adapter started", "adapter", adapter.Name())
	}

	sched := scheduler.NewScheduler(store, logging.WithComponent("scheduler"))
	sched.Start()
	logger.Info("Scheduler started")

	srv := server.New(&cfg.Server, store, logging.WithComponent("server"))
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Stopping adapters")
	for _, adapter := range adapters {
		if err := adapter.Stop(); err != nil {
			logger.Error("Failed to stop adapter", "adapter", adapter.Name(), "error", err)
		} else {
			logger.Info("Adapter stopped", "adapter", adapter.Name())
		}
	}

	logger.Info("Stopping voice workers")
	voicePool.Stop()

	logger.Info("Stopping scheduler")
	sched.Stop()

	logger.Info("Stopping HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Shutdown complete")
}
