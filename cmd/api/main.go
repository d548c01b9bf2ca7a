package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cliniquerisimed-lab/jongwane/internal/app"
	"github.com/cliniquerisimed-lab/jongwane/internal/audit"
	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/config"
	"github.com/cliniquerisimed-lab/jongwane/internal/events"
	"github.com/cliniquerisimed-lab/jongwane/internal/gemini"
	"github.com/cliniquerisimed-lab/jongwane/internal/history"
	"github.com/cliniquerisimed-lab/jongwane/internal/logger"
	"github.com/cliniquerisimed-lab/jongwane/internal/media"
	"github.com/cliniquerisimed-lab/jongwane/internal/persist"
	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
	"github.com/cliniquerisimed-lab/jongwane/internal/search"
	"github.com/cliniquerisimed-lab/jongwane/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	zlog := logger.NewZapLogger(cfg.LogFile, cfg.IsProduction())
	defer func() { _ = zlog.Sync() }()

	kv, err := store.OpenKV(ctx, store.Options{
		Backend:       cfg.StorageBackend,
		RedisURL:      cfg.RedisURL,
		DatabaseURL:   cfg.DatabaseURL,
		MigrationsDir: cfg.MigrationsDir,
	})
	if err != nil {
		log.Fatalf("storage connection failed: %v", err)
	}
	defer kv.Close()

	ai, err := gemini.New(ctx, gemini.Options{
		APIKey:         cfg.APIKey,
		AnalysisModel:  cfg.AnalysisModel,
		FallbackModel:  cfg.FallbackModel,
		SpeechModel:    cfg.SpeechModel,
		Voice:          cfg.Voice,
		SpeechMaxChars: cfg.SpeechMaxChars,
	}, zlog)
	if err != nil {
		log.Fatalf("gemini client failed: %v", err)
	}
	if !ai.Configured() {
		zlog.Warn("main", "no API key configured, analyses will report a missing credential", nil)
	}

	var devices playback.DeviceFactory
	if cfg.AudioEnabled {
		devices = playback.FFPlayFactory(cfg.FFPlayPath, 0)
		if devices == nil {
			zlog.Warn("main", "ffplay not found, narration is silent", map[string]any{"path": cfg.FFPlayPath})
		}
	}
	player := playback.NewController(devices, zlog)

	hub := events.NewHub(cfg.CORSOrigin, zlog)
	ws := audit.NewWorkspace(audit.WorkspaceOptions{
		Catalog:   catalog.NewStore(nil),
		Analyzer:  ai,
		Speech:    ai,
		Player:    player,
		Bridge:    persist.NewBridge(kv, cfg.StorageKey, zlog),
		Log:       zlog,
		OnSession: hub.SessionObserver(),
	})
	ws.Load(ctx)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, zlog)
	}
	searchService := search.NewService(meiliClient, search.NewScanner(ws), zlog)
	defer searchService.Close()

	var historyService *history.Service
	if strings.TrimSpace(cfg.HistoryDir) != "" {
		if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
			log.Fatalf("failed to create history dir: %v", err)
		}
		historyService = history.New(cfg.HistoryDir)
	}

	var archive *media.Archive
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archive, err = media.Open(ctx, media.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, zlog)
		if err != nil {
			zlog.Warn("main", "narration archive disabled", map[string]any{"error": err.Error()})
			archive = nil
		}
	}

	service := app.NewService(app.Dependencies{
		Workspace: ws,
		Store:     kv,
		Search:    searchService,
		History:   historyService,
		Archive:   archive,
		Hub:       hub,
		Log:       zlog,
	})
	go searchService.ReindexAll(ws)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, hub, zlog)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Exports render through headless Chromium.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info("main", "audit API listening", map[string]any{"addr": cfg.Addr, "storage": cfg.StorageBackend})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("main", "shutdown error", map[string]any{"error": err.Error()})
	}
	service.Close()
}
