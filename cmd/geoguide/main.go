package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"geoguidego/internal/api"
	"geoguidego/pkg/audio"
	"geoguidego/pkg/classifier"
	"geoguidego/pkg/config"
	"geoguidego/pkg/db"
	"geoguidego/pkg/engine"
	"geoguidego/pkg/geofence"
	"geoguidego/pkg/history"
	"geoguidego/pkg/location"
	"geoguidego/pkg/logging"
	"geoguidego/pkg/overpass"
	"geoguidego/pkg/request"
	"geoguidego/pkg/settings"
	"geoguidego/pkg/speech"
	"geoguidego/pkg/store"
	"geoguidego/pkg/tracker"
	"geoguidego/pkg/tts"
	"geoguidego/pkg/tts/edgetts"
	"geoguidego/pkg/version"
	"geoguidego/pkg/wikipedia"
)

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", "configs/geoguide.yaml", "Path to config file")
)

func main() {
	flag.Parse()

	// Optional .env for EDGE_TTS_* and OVERPASS_URL overrides
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment from .env")
	}

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	tts.SetLogPath(cfg.Log.TTS.Path)

	slog.Info("GeoGuideGo started", "version", version.Version)

	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()
	st := store.NewSQLiteStore(dbConn)

	catCfg, err := config.LoadCategories("configs/categories.yaml")
	if err != nil {
		return fmt.Errorf("failed to load categories config: %w", err)
	}

	tr := tracker.New()
	reqClient := request.New(st, tr, time.Duration(cfg.Request.Timeout))

	settingsSvc := settings.NewService(st)

	ovp := overpass.New(reqClient, &cfg.Overpass, catCfg, classifier.New(catCfg), st)

	var enricher engine.Enricher
	if cfg.Wikipedia.Enabled {
		enricher = wikipedia.NewClient(reqClient)
	}

	// Location provider feeding the shared fix tracker
	fixes := location.NewTracker()
	provider, err := initLocation(cfg)
	if err != nil {
		return err
	}
	go func() {
		if err := provider.Run(ctx, fixes); err != nil && ctx.Err() == nil {
			slog.Error("Location provider stopped", "provider", provider.Name(), "error", err)
		}
	}()

	// Speech pipeline
	ttsProv, player, err := initTTS(cfg, tr)
	if err != nil {
		return err
	}
	defer player.Shutdown()

	channel := speech.NewSynthChannel(ttsProv, player, cfg.TTS.EdgeTTS.VoiceID, "data/speech")
	queue := speech.NewQueue(channel, cfg.Speech)
	go queue.Run(ctx)

	// History recorder with retention cleanup; the response cache is
	// pruned on the same tick
	recorder := history.NewRecorder(st, dbConn,
		time.Duration(cfg.History.Retention),
		time.Duration(cfg.History.CleanupInterval))
	go recorder.Run(ctx)

	// Announcement engine
	regions := geofence.NewIndex(cfg.Geofence.MaxRegions)
	eng := engine.New(fixes, settingsSvc, ovp, st, recorder, queue, regions, engine.Config{
		Tick:     time.Duration(cfg.Engine.Tick),
		Enricher: enricher,
	})
	go eng.Run(ctx)

	return runServer(ctx, cancel, cfg, eng, fixes, tr, st, settingsSvc, recorder)
}

func initLocation(cfg *config.Config) (location.Provider, error) {
	switch cfg.Location.Provider {
	case "mock", "":
		return location.NewMockWalk(cfg.Location.Mock), nil
	default:
		return nil, fmt.Errorf("unknown location provider: %q", cfg.Location.Provider)
	}
}

func initTTS(cfg *config.Config, tr *tracker.Tracker) (tts.Provider, audio.Player, error) {
	switch cfg.TTS.Engine {
	case "edge-tts", "":
		return edgetts.NewProvider(tr), audio.New(), nil
	case "mock":
		// Mock provider writes text files; nothing decodable to play
		return &tts.Mock{}, audio.NewNullPlayer(), nil
	default:
		return nil, nil, fmt.Errorf("unknown tts engine: %q", cfg.TTS.Engine)
	}
}

func runServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, eng *engine.Engine, fixes *location.Tracker, tr *tracker.Tracker, st store.Store, settingsSvc *settings.Service, recorder *history.Recorder) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	statusH := api.NewStatusHandler(eng, fixes, tr)
	srv := api.NewServer(cfg.Server.Address,
		statusH,
		api.NewSettingsHandler(settingsSvc),
		api.NewHistoryHandler(recorder),
		api.NewPOIHandler(st, fixes),
		api.NewWSHandler(ctx, statusH),
		shutdownFunc,
	)
	srv.Handler = loggingMiddleware(srv.Handler)

	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}

	// Stop the pipeline before the listener so in-flight handlers still
	// see consistent state.
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
