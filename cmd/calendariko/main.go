package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/calendariko/calendariko/internal/config"
	"github.com/calendariko/calendariko/internal/database"
	"github.com/calendariko/calendariko/internal/dates"
	"github.com/calendariko/calendariko/internal/gcal"
	"github.com/calendariko/calendariko/internal/handlers"
	"github.com/calendariko/calendariko/internal/logging"
	"github.com/calendariko/calendariko/internal/scheduler"
	"github.com/calendariko/calendariko/internal/token"
	"github.com/calendariko/calendariko/internal/user"
	"github.com/calendariko/calendariko/internal/viewhelpers"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Determine if we're in development mode
	isDev := os.Getenv("ENV") != "production"
	logging.Initialize(isDev)

	logger := logging.GetLogger("main")
	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", date).
		Msg("Starting Calendariko")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Application run failed")
	}
}

func run(ctx context.Context) error {
	logger := logging.GetLogger("main")

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "configs/calendariko.toml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Str("config_path", configPath).Msg("Failed to load configuration")
		return err
	}

	logging.Setup(logging.Options{Development: cfg.App.Development, Level: cfg.App.LogLevel})
	logger = logging.GetLogger("main")
	logger.Info().Str("log_level", cfg.App.LogLevel).Str("timezone", cfg.App.Timezone).Msg("Configuration loaded")

	dbOpts := database.NewMemoryOptions()
	if cfg.Service.StateFile != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Service.StateFile), 0755); err != nil {
			logger.Error().Err(err).Str("path", filepath.Dir(cfg.Service.StateFile)).Msg("Failed to create data directory")
			return err
		}
		dbOpts = database.NewDefaultOptions(cfg.Service.StateFile)
	}

	db, err := database.New(dbOpts)
	if err != nil {
		wrappedErr := fmt.Errorf("failed to initialize database: %w", err)
		logger.Error().Err(wrappedErr).Str("db_path", cfg.Service.StateFile).Msg("Database initialization failed")
		return wrappedErr
	}
	defer db.Close()

	if err := db.MigrateDatabase(); err != nil {
		wrappedErr := fmt.Errorf("failed to initialize database schema: %w", err)
		logger.Error().Err(wrappedErr).Msg("Database schema initialization failed")
		return wrappedErr
	}

	location := cfg.Location()
	clock := dates.SystemClock{Location: location}
	eventStore := database.NewEventStore(db)
	availabilityStore := database.NewAvailabilityStore(db)

	baseHandler := handlers.NewBaseHandler(eventStore, availabilityStore, clock, location, viewhelpers.Layout{
		WeekRowHeight: cfg.View.WeekRowHeight,
		DayRowHeight:  cfg.View.DayRowHeight,
	})

	allowed, err := parseRoles(cfg.App.AllowedRoles)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid allowed roles")
		return err
	}

	// Nil interfaces keep the mirror routes answering 503.
	var (
		runner    handlers.SyncRunner
		calendars handlers.CalendarLister
		sched     *scheduler.Scheduler
	)
	if cfg.Google.Enabled {
		tokenManager := token.NewTokenManager(database.NewTokenStore(db), token.OAuthConfig(cfg.Google), cfg.Google.RefreshToken)
		client := oauth2.NewClient(ctx, tokenManager.TokenSource(ctx))

		calSvc, err := gcal.New(ctx, cfg.Google, location.String(), eventStore, database.NewMirrorStore(db), clock, option.WithHTTPClient(client))
		if err != nil {
			wrappedErr := fmt.Errorf("failed to initialize calendar mirror: %w", err)
			logger.Error().Err(wrappedErr).Msg("Calendar mirror initialization failed")
			return wrappedErr
		}

		sched = scheduler.New(cfg.Google.SyncCron, calSvc)
		if err := sched.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to start mirror scheduler")
			return err
		}
		runner, calendars = sched, calSvc
		logger.Info().Str("calendar_id", calSvc.CalendarID()).Str("sync_cron", cfg.Google.SyncCron).Msg("Google Calendar mirror enabled")
	} else {
		logger.Info().Msg("Google Calendar mirror disabled")
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handlers.NewRouter(baseHandler, runner, calendars, allowed),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.App.Port).Msg("Starting web server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Context cancelled, initiating shutdown sequence")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("HTTP server error")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Mirror scheduler did not stop cleanly")
		}
	}

	logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
		return err
	}
	logger.Info().Msg("Shutdown complete")
	return nil
}

func parseRoles(names []string) ([]user.Role, error) {
	roles := make([]user.Role, 0, len(names))
	for _, name := range names {
		role, err := user.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("app.allowed_roles: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, nil
}
