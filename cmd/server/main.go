// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/whosaid/internal/auth"
	"github.com/jason-s-yu/whosaid/internal/cache"
	"github.com/jason-s-yu/whosaid/internal/config"
	"github.com/jason-s-yu/whosaid/internal/handlers"
	"github.com/jason-s-yu/whosaid/internal/lobby"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const releaseVersion = "0.1.0"

func main() {
	cfg := &config.Server{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Server) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "whosaid-server",
		Short:         "Serves guess-the-author trivia lobbies over HTTP and websockets.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
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

func run(ctx context.Context, cfg *config.Server) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := config.NewLogger(cfg.Verbose)

	if cfg.PrivateKeyPath != "" {
		if err := auth.InitFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenExpire); err != nil {
			return err
		}
	} else if err := auth.Init(cfg.TokenExpire); err != nil {
		return err
	}

	var recorder lobby.Recorder
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		recorder = cache.NewPublisher(rdb, cfg.HistoryQueue, logger)
		logger.Infof("Publishing lobby history to redis %s (%s)", cfg.RedisAddr, cfg.HistoryQueue)
	}

	hub := handlers.NewHub(logger)
	store := lobby.NewLobbyStore(lobby.Options{
		Broadcaster: hub,
		Recorder:    recorder,
		Logger:      logger,
		Defaults:    cfg.LobbyDefaults(),
	})

	reaper := lobby.NewReaper(store, cfg.ReapInterval, cfg.IdleTimeout, logger)
	go reaper.Run(ctx)

	srv := handlers.NewLobbyServer(store, hub, logger)
	srv.PublicURL = cfg.PublicURL
	srv.CommandRate = cfg.CommandRate
	srv.CommandBurst = cfg.CommandBurst

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, id := range store.IDs() {
		store.RemoveWithReason(id, "shutdown")
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"error": err}).Warn("http shutdown")
	}
	return nil
}
