// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/yukimura/utabako/internal/api/rest"
	"github.com/yukimura/utabako/internal/app/player"
	"github.com/yukimura/utabako/internal/app/playliststore"
	"github.com/yukimura/utabako/internal/app/queue"
	"github.com/yukimura/utabako/internal/app/resolver"
	"github.com/yukimura/utabako/internal/infra/catalog"
	"github.com/yukimura/utabako/internal/infra/config"
	"github.com/yukimura/utabako/internal/infra/logger"
	"github.com/yukimura/utabako/internal/infra/storage"
	"github.com/yukimura/utabako/internal/infra/syncapi"
)

var (
	app        = kingpin.New("utabako-server", "utabako song archive server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
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

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer kv.Close()

	// Optional cloud collaborator client.
	var remote playliststore.RemoteClient
	if cfg.Sync.Enabled() {
		client, err := syncapi.New(ctx, syncapi.Config{
			BaseURL:         cfg.Sync.BaseURL,
			UserToken:       cfg.Sync.UserToken,
			RateLimitPerSec: cfg.Sync.RateLimitPerSec,
		})
		if err != nil {
			return fmt.Errorf("failed to create sync client: %w", err)
		}
		remote = client
	} else {
		zlog.Info().Msg("Cloud sync not configured, playlists stay local")
	}

	store, err := playliststore.New(kv, remote)
	if err != nil {
		return fmt.Errorf("failed to load playlists: %w", err)
	}

	catalogClient, err := catalog.New(catalog.Config{BaseURL: cfg.Catalog.BaseURL})
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	res := resolver.New()
	if err := refreshCatalog(ctx, catalogClient, res); err != nil {
		// Startup without a catalog still serves local playlists.
		zlog.Warn().Msgf("Initial catalog fetch failed: %v", err)
	}

	q := queue.NewManager()
	engine := player.NewEngine(q, res)
	defer engine.Close()

	go logPlayerEvents(engine)
	go catalogRefreshLoop(ctx, cfg, catalogClient, res)
	if remote != nil {
		go syncLoop(ctx, cfg, store)
	}

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(rest.NewServer(store, q, engine, res).Router(), &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	// One last sync so a clean shutdown never loses playlist edits.
	if remote != nil {
		if _, err := store.Sync(shutdownCtx); err != nil {
			zlog.Warn().Msgf("Final sync failed: %v", err)
		}
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// refreshCatalog replaces the resolver's id set with a fresh snapshot.
func refreshCatalog(ctx context.Context, client *catalog.Client, res *resolver.Resolver) error {
	perfs, err := client.FetchSnapshot(ctx)
	if err != nil {
		return err
	}
	res.Rebuild(perfs)
	zlog.Info().Msgf("Catalog refreshed: %d performances", len(perfs))
	return nil
}

func catalogRefreshLoop(ctx context.Context, cfg *config.Config, client *catalog.Client, res *resolver.Resolver) {
	ticker := time.NewTicker(time.Duration(cfg.Catalog.RefreshIntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := refreshCatalog(ctx, client, res); err != nil {
				zlog.Warn().Msgf("Catalog refresh failed: %v", err)
			}
		}
	}
}

func syncLoop(ctx context.Context, cfg *config.Config, store *playliststore.Store) {
	ticker := time.NewTicker(time.Duration(cfg.Sync.IntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := store.Sync(ctx)
			if err != nil {
				zlog.Warn().Msgf("Background sync failed: %v", err)
				continue
			}
			for _, r := range results {
				if r.Conflict {
					zlog.Info().Msgf("Sync conflict on %s resolved, kept %s version", r.PlaylistID, r.KeptVersion)
				}
			}
		}
	}
}

// logPlayerEvents drains the engine's event channel.
func logPlayerEvents(engine *player.Engine) {
	for ev := range engine.Events() {
		switch ev.Type {
		case player.EventTrackStarted:
			zlog.Info().Msgf("Now playing: %s (%s)", ev.Track.SongTitle, ev.Track.PerformanceID)
		case player.EventSkippedUnplayable:
			zlog.Warn().Msgf("Skipped %d unplayable track(s)", ev.SkippedCount)
		case player.EventStateChanged:
			zlog.Debug().Msgf("Player state: %s", ev.State)
		case player.EventIdle:
			zlog.Info().Msg("Playback finished, player idle")
		}
	}
}
