package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cutroom/cutroom-agent/internal/api"
	"github.com/cutroom/cutroom-agent/internal/config"
	"github.com/cutroom/cutroom-agent/internal/db"
	"github.com/cutroom/cutroom-agent/internal/engine"
	"github.com/cutroom/cutroom-agent/internal/history"
	"github.com/cutroom/cutroom-agent/internal/ingest"
	"github.com/cutroom/cutroom-agent/internal/library"
	"github.com/cutroom/cutroom-agent/internal/logging"
	"github.com/cutroom/cutroom-agent/internal/preview"
	"github.com/cutroom/cutroom-agent/internal/render"
	"github.com/cutroom/cutroom-agent/internal/session"
	"github.com/cutroom/cutroom-agent/internal/timeline"
	"github.com/cutroom/cutroom-agent/internal/ui"
	"github.com/cutroom/cutroom-agent/internal/visual"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.MediaDir(), 0755); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting cutroom agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := session.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                   CUTROOM AGENT v%-7s                  ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	if cfg.RenderAPIKey() == "" {
		logger.Warn("no render API key configured, exports will be rejected",
			"env", config.EnvRenderAPIKey)
	} else {
		logger.Info("render API key loaded", "key", logging.MaskKey(cfg.RenderAPIKey()))
	}

	doc := timeline.Document{
		Timeline: timeline.Timeline{Background: "#000000", Tracks: []timeline.Track{{}}},
		Output:   timeline.Output{Format: "mp4", Resolution: "hd"},
	}
	eng := engine.NewMemory(doc, logger)
	hist := history.NewStack(logger)
	vis := visual.NewTimeline()

	sessionSvc := session.NewService(eng, hist, vis, repo, cfg.RenderAPIKey(), logger)

	ingestClient := ingest.NewClient(cfg.IngestBaseURL(), cfg.RenderAPIKey(), logger)
	renderClient := render.NewClient(cfg.RenderBaseURL(), cfg.RenderAPIKey(), logger)
	orchestrator := render.NewOrchestrator(renderClient, ingestClient, logger)
	orchestrator.SetPolling(cfg.PollInterval(), cfg.PollTimeout())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := session.NewRunner(repo, orchestrator, logger)
	go runner.Start(ctx)

	librarySvc := library.NewService(library.NewRepository(database.Conn()), cfg.MediaDir(), logger)
	if cfg.WatchDir() != "" {
		watcher := library.NewWatcher(librarySvc, cfg.WatchDir(), logger)
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logger.Error("watch folder failed", "error", err)
			}
		}()
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Session:    sessionSvc,
		Library:    librarySvc,
		Preview:    preview.NewServer(logger),
		Repository: repo,
		Runner:     runner,
		Logger:     logger,
		StartTime:  startTime,
		Version:    config.Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Session: sessionSvc,
			Runner:  runner,
			Logger:  logger,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(repo session.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
