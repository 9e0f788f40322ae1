package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/api"
	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/editor"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/pipeline"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/thumbnail"
	"github.com/heimdex/heimdex-editor/internal/timeline"
	"github.com/heimdex/heimdex-editor/internal/ui"
	"github.com/heimdex/heimdex-editor/internal/watcher"
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
	if err := os.MkdirAll(cfg.CacheDir(), 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting heimdex editor", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if mediaCount, thumbCount, err := database.Stats(); err == nil {
		logger.Info("state loaded", "media", mediaCount, "thumbnails", thumbCount)
	}

	repo := media.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}
	instanceID := uuid.NewString()

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                  HEIMDEX EDITOR v%-24s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Cache:      %-45s ║\n", humanize.Bytes(cfg.CacheMaxBytes()))
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	var ffmpeg pipeline.FFmpeg = pipeline.NewRealFFmpeg(cfg.FFmpegBinary(), logger)
	if !ffmpeg.Available() {
		logger.Warn("ffmpeg not found, thumbnails and probing disabled", "binary", cfg.FFmpegBinary())
		ffmpeg = pipeline.NewStubFFmpeg(logger)
	}

	mediaSvc := media.NewService(repo, ffmpeg, logger)

	thumbs := thumbnail.New(ffmpeg, repo, thumbnail.Options{
		Dir:      cfg.CacheDir(),
		Width:    cfg.ThumbWidth(),
		Height:   cfg.ThumbHeight(),
		Workers:  cfg.ThumbWorkers(),
		MaxBytes: cfg.CacheMaxBytes(),
		Logger:   logging.WithComponent(logger, "thumbnail"),
	})
	defer thumbs.Close()

	session := editor.NewSession(mediaSvc, thumbs, editor.Options{
		Layout: timeline.Layout{
			ThumbWidthPx: float64(cfg.ThumbWidth()),
			GapPx:        float64(cfg.ThumbGap()),
		},
		Operation:    cfg.Operation(),
		GIFWindowSec: cfg.GIFWindowSec(),
		DragTimeout:  cfg.DragTimeout(),
		Logger:       logging.WithComponent(logger, "editor"),
	})
	thumbs.OnReady(func(timeline.BitmapRef) { session.ThumbnailsChanged() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fileWatcher := watcher.NewFSWatcher(logging.WithComponent(logger, "watcher"), 0)
	defer fileWatcher.Stop()
	fileWatcher.OnChange(func(path string, event watcher.EventType) {
		refreshMedia(ctx, session, mediaSvc, path, event, logger)
	})
	session.Subscribe(func(snap editor.Snapshot) {
		if snap.Media == nil {
			return
		}
		if err := fileWatcher.Watch(ctx, snap.Media.Path); err != nil {
			logger.Warn("failed to watch media file", "error", err)
		}
	})

	apiServer := api.NewServer(api.ServerConfig{
		Port:            cfg.Port(),
		Session:         session,
		Media:           mediaSvc,
		Thumbnails:      thumbs,
		PlaybackServer:  playback.NewServer(logger),
		Repository:      repo,
		FFmpegAvailable: ffmpeg.Available(),
		Logger:          logger,
		StartTime:       startTime,
		InstanceID:      instanceID,
		Version:         config.Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	var tray *ui.Tray
	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray = ui.NewTray(ui.TrayConfig{
			Session: session,
			Logger:  logger,
			CacheUsage: func() (uint64, error) {
				n, err := repo.ThumbnailBytes(context.Background())
				return uint64(n), err
			},
			OnQuit: quit,
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()
	if tray != nil {
		tray.Quit()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// refreshMedia re-probes a file that changed on disk and feeds the new
// duration to the session if it is still the loaded media.
func refreshMedia(ctx context.Context, session *editor.Session, svc media.MediaService, path string, event watcher.EventType, logger *slog.Logger) {
	if event == watcher.EventDelete {
		logger.Warn("media file removed", "path", logging.SanitizePath(path))
		return
	}
	cur := session.Media()
	if cur == nil || cur.Path != path {
		return
	}
	m, err := svc.Open(ctx, path)
	if err != nil {
		logger.Warn("failed to refresh media", "path", logging.SanitizePath(path), "error", err)
		return
	}
	if m.Duration != cur.Duration || m.FrameRate != cur.FrameRate {
		if err := session.SetMetadata(m.Duration, m.FrameRate); err != nil {
			logger.Debug("metadata refresh skipped", "error", err)
		}
	}
}

func ensureAuthToken(repo media.Repository) (string, error) {
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
