package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/auth"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/config"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/database"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/event"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the broker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		logger.ErrorF("Error occured while reading config %v", err)
		return err
	}
	loggerCallback := logger.Init(cfg)
	logger.Debug("Application initializing...")
	cleaner := event.NewCleaner(loggerCallback)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	authenticator, err := setupAuth(ctx, cfg, cleaner)
	if err != nil {
		logger.ErrorF("Error occured while initializing authentication, details: %v", err)
		_ = cleaner.Clean()
		return err
	}

	broker, err := server.New(cfg, authenticator)
	if err != nil {
		logger.ErrorF("Error occured while initializing server, details: %v", err)
		_ = cleaner.Clean()
		return err
	}
	cleaner.Add(broker)

	served := make(chan error, 1)
	go func() {
		served <- broker.ListenAndServe(ctx)
		stop()
	}()

	cleanErr := cleaner.Run(ctx)
	if err := <-served; err != nil {
		return errors.Join(err, cleanErr)
	}
	return cleanErr
}

// setupAuth connects to MongoDB when the mongo provider is configured and
// returns the authenticator the broker uses.
func setupAuth(ctx context.Context, cfg config.Config, cleaner *event.Cleaner) (auth.Authenticator, error) {
	if cfg.Auth.Provider != "mongo" {
		return nil, nil
	}
	db, err := connectDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cleaner.Add(db)
	return auth.NewStoreAuthenticator(
		database.NewMongoUserStore(db),
		cfg.Auth.CacheSize,
		cfg.Auth.CacheTTLDuration(),
		db.OperationTimeout,
	), nil
}

func connectDatabase(ctx context.Context, cfg config.Config) (*database.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	db, err := database.Connect(connectCtx, cfg.AppName, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
