// Package main provides the tunedeck daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	api "github.com/osa030/tunedeck/internal/api/connect"
	"github.com/osa030/tunedeck/internal/app/browse"
	"github.com/osa030/tunedeck/internal/app/player"
	"github.com/osa030/tunedeck/internal/app/queue"
	"github.com/osa030/tunedeck/internal/infra/config"
	"github.com/osa030/tunedeck/internal/infra/engine"
	"github.com/osa030/tunedeck/internal/infra/library"
	"github.com/osa030/tunedeck/internal/infra/logger"
	"github.com/osa030/tunedeck/internal/infra/store"
)

var (
	app        = kingpin.New("tunedeck-server", "tunedeck media player daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// reset-queue command
	resetQueueCmd = app.Command("reset-queue", "Clear the persisted queue and exit")
)

func init() {
	// start command (default)
	app.Command("start", "Start the daemon (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == resetQueueCmd.FullCommand() {
		if err := resetQueue(cfg); err != nil {
			zlog.Fatal().Msgf("Failed to reset queue: %v", err)
		}
		zlog.Info().Msg("Persisted queue cleared")
		return
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// resetQueue removes the persisted queue and now-playing records.
func resetQueue(cfg *config.Config) error {
	qs := store.NewQueueStore(cfg.Storage.QueuePath())
	ns := store.NewNowPlayingStore(cfg.Storage.NowPlayingPath())
	if err := qs.Reset(); err != nil {
		return err
	}
	return ns.Reset()
}

func run(cfg *config.Config) error {
	// Stores and queue repository. A corrupt record leaves the repository
	// unavailable but the daemon keeps serving: queue operations fail until
	// an admin resets, browsing and status stay up.
	queueStore := store.NewQueueStore(cfg.Storage.QueuePath())
	npStore := store.NewNowPlayingStore(cfg.Storage.NowPlayingPath())
	repo, err := queue.NewRepository(queueStore, npStore)
	if err != nil {
		zlog.Error().Msgf("Persisted queue unavailable: %v", err)
		zlog.Error().Msg("Queue operations are disabled until reset-queue or an admin ResetQueue call")
	}

	// Library metadata store.
	sqliteSettings, err := cfg.Library.SQLiteSettings()
	if err != nil {
		return err
	}
	lib, err := library.Open(sqliteSettings.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := lib.Close(); err != nil {
			zlog.Warn().Msgf("Failed to close library: %v", err)
		}
	}()
	zlog.Info().Msgf("Library opened at %s", sqliteSettings.Path)

	// Playback engine and manager.
	clock := engine.NewClock(lib, time.Duration(cfg.Playback.EngineTickMs)*time.Millisecond)
	manager := player.NewManager(clock, repo, lib, player.Config{
		ProgressSaveInterval: time.Duration(cfg.Playback.ProgressSaveIntervalMs) * time.Millisecond,
	})
	manager.ConnectToService()
	defer manager.DisconnectFromService()

	// Media tree browser.
	browser, err := browse.New(lib, manager)
	if err != nil {
		return err
	}

	// Connect services over the JSON codec.
	codec := connect.WithCodec(api.JSONCodec{})
	mux := http.NewServeMux()
	api.NewQueueService(repo).Mount(mux, codec)
	api.NewPlaybackService(manager).Mount(mux, codec)
	api.NewBrowseService(browser).Mount(mux, codec)
	adminAuth := connect.WithInterceptors(api.NewAdminAuthInterceptor(cfg.Admin.Token))
	api.NewAdminService(repo, browser).Mount(mux, codec, adminAuth)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		zlog.Info().Msgf("Received signal %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Warn().Msgf("Server shutdown: %v", err)
	}
	return nil
}
