package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Israel70964/YadnusConsultant2/config"
	"github.com/Israel70964/YadnusConsultant2/pkg/database"
	"github.com/Israel70964/YadnusConsultant2/pkg/redis"
)

// app carries what subcommands share. Connections are opened lazily by the commands that need them.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var verbose bool
	root := &cobra.Command{
		Use:          "yadnus-admin",
		Short:        "Operator tasks for the Yadnus Consultant backend",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg
			a.logger = newLogger(verbose)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.AddCommand(newMigrateCmd(a), newCreateAdminCmd(a), newQueueStatsCmd(a))
	return root
}

func (a *app) pool(ctx context.Context) (*pgxpool.Pool, error) {
	return database.NewPostgresPool(ctx, a.cfg.Database.DSN(), database.PoolOptions{MaxConns: 2}, a.logger)
}

func (a *app) redis(ctx context.Context) (*redis.Client, error) {
	return redis.NewClient(ctx, redis.Options{Addr: a.cfg.Redis.Addr, Password: a.cfg.Redis.Password, DB: a.cfg.Redis.DB}, a.logger)
}

func newLogger(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
