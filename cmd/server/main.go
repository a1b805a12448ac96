// Command vehtrack-server starts the fleet tracking API server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vehtrack/vehtrack/internal/authz"
	"github.com/vehtrack/vehtrack/internal/config"
	"github.com/vehtrack/vehtrack/internal/limiter"
	"github.com/vehtrack/vehtrack/internal/migrate"
	"github.com/vehtrack/vehtrack/internal/repository/postgres"
	httpserver "github.com/vehtrack/vehtrack/internal/server/http"
	"github.com/vehtrack/vehtrack/internal/service"
	"github.com/vehtrack/vehtrack/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations and starts the HTTP server.
func main() {
	addr := flag.String("addr", "", "listen address (overrides LISTEN_ADDR)")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (overrides DB_DSN)")
	revokedCap := flag.Int("revoked-cap", 10000, "capacity of the revoked token set")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
	)

	if *dsn != "" {
		os.Setenv("DB_DSN", *dsn)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	// Repositories
	db := &postgres.DB{Pool: pool}
	accountRepo := postgres.NewAccountRepo(db)
	userRepo := postgres.NewUserRepo(db)
	deviceRepo := postgres.NewDeviceRepo(db)
	fleetRepo := postgres.NewFleetRepo(db)
	telemetryRepo := postgres.NewTelemetryRepo(db)

	lim := limiter.NewPG(pool, 15*time.Minute, 5, 15*time.Minute)
	tokens := token.NewManager([]byte(cfg.JWTSecret), cfg.AccessTTL)
	revoked := token.NewRevokedSet(*revokedCap)
	guard := authz.NewGuard(fleetRepo)

	// Services
	authSvc := service.NewAuthService(accountRepo, userRepo, tokens, revoked, lim, cfg.BcryptCost)
	fleetSvc := service.NewFleetService(guard, fleetRepo, userRepo, deviceRepo)
	userSvc := service.NewUserService(guard, accountRepo, userRepo, fleetRepo, cfg.BcryptCost)
	deviceSvc := service.NewDeviceService(guard, accountRepo, deviceRepo, fleetRepo, cfg.BcryptCost)
	telemetrySvc := service.NewTelemetryService(guard, telemetryRepo, deviceRepo, fleetRepo)

	if created, err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal("ensure admin", zap.Error(err))
	} else if created {
		logger.Info("created default admin account", zap.String("email", cfg.AdminEmail))
	}

	app := httpserver.NewServer(logger, authSvc, fleetSvc, userSvc, deviceSvc, telemetrySvc, tokens, revoked)
	srv := &http.Server{Addr: cfg.Addr, Handler: app.Router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
