package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/app"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/config"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/database"
	"github.com/matmuruaga/sales-advisor-app-sub002/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "pipelinectl",
	Short:         "Operate the participant matching and enrichment pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, reconcileCmd, metricsCmd, createUserCmd)
}

type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	services *app.Services
}

func (r *runtime) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logging.New(cfg.Log), nil
}

// openRuntime connects to the database and wires the services.
func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL, cfg.Pool)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rt := &runtime{cfg: cfg, logger: logger, pool: pool}
	if rt.services, err = app.NewServices(ctx, cfg, pool, logger); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}
