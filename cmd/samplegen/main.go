// Command samplegen fills the database with a deterministic demo dataset.
package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vehtrack/vehtrack/internal/config"
	"github.com/vehtrack/vehtrack/internal/migrate"
	"github.com/vehtrack/vehtrack/internal/repository/postgres"
	"github.com/vehtrack/vehtrack/internal/sample"
)

func main() {
	dsn := flag.String("dsn", "", "PostgreSQL DSN (overrides DB_DSN)")
	users := flag.Int("users", 9, "number of users to generate")
	devices := flag.Int("devices", 6, "number of devices to generate")
	seed := flag.Int64("seed", 1, "random seed")
	password := flag.String("password", "parola", "password shared by all generated accounts")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if *dsn != "" {
		os.Setenv("DB_DSN", *dsn)
	}
	if os.Getenv("JWT_SECRET") == "" {
		// The generator never signs tokens; satisfy config with a stub.
		os.Setenv("JWT_SECRET", "samplegen")
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx := context.Background()
	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	db := &postgres.DB{Pool: pool}
	repos := sample.Repos{
		Accounts:  postgres.NewAccountRepo(db),
		Users:     postgres.NewUserRepo(db),
		Devices:   postgres.NewDeviceRepo(db),
		Fleets:    postgres.NewFleetRepo(db),
		Telemetry: postgres.NewTelemetryRepo(db),
	}

	gen := sample.New(sample.Config{
		Users:    *users,
		Devices:  *devices,
		Seed:     *seed,
		Password: *password,
		Cost:     cfg.BcryptCost,
	})
	if err := gen.Populate(ctx, repos); err != nil {
		logger.Fatal("populate", zap.Error(err))
	}
	logger.Info("sample data written",
		zap.Int("users", *users),
		zap.Int("devices", *devices),
		zap.Int64("seed", *seed),
	)
}
