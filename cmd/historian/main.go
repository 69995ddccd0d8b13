// cmd/historian/main.go drains lobby history records from Redis into PostgreSQL.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/whosaid/internal/cache"
	"github.com/jason-s-yu/whosaid/internal/config"
	"github.com/jason-s-yu/whosaid/internal/database"
	"github.com/jason-s-yu/whosaid/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
)

func main() {
	cfg := &config.Historian{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Historian) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "whosaid-historian",
		Short:         "Persists lobby history records from Redis into PostgreSQL.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	cfg.RegisterFlags(fs)
	config.BindEnv(fs)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	return cmd
}

func run(ctx context.Context, cfg *config.Historian) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := config.NewLogger(cfg.Verbose)

	pool, err := database.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	svc := historian.New(
		historian.RedisSource{Client: rdb, Queue: cfg.Queue},
		historian.PostgresSink{DB: pool},
		cfg.BatchSize,
		cfg.FlushInterval,
		logger,
	)
	logger.Infof("Consuming %s from %s", cfg.Queue, cfg.RedisAddr)
	svc.Run(ctx)
	return nil
}
