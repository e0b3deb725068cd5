package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leadscout/internal/adapters/redis"
	"leadscout/internal/app"
	"leadscout/internal/config"
	"leadscout/internal/logging"
	"leadscout/internal/ports"
)

// runtimeEnv is built lazily by the commands that reach the network.
type runtimeEnv struct {
	cfg     *config.Config
	logger  *zap.Logger
	factory *app.Factory
	closers []func() error
}

func (e *runtimeEnv) close() {
	for _, c := range e.closers {
		_ = c()
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions
	cmd := &cobra.Command{
		Use:           "leadscout",
		Short:         "Find local businesses and check whether they already have a website",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default $LEADSCOUT_CONFIG or configs/leadscout.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	cmd.AddCommand(newDiscoverCmd(&opts))
	cmd.AddCommand(newVerifyCmd(&opts))
	cmd.AddCommand(newClassifyCmd())
	return cmd
}

func setup(ctx context.Context, opts *rootOptions) (*runtimeEnv, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil && !errors.Is(err, config.ErrDatabaseURLMissing) {
		return nil, withCode(exitConfig, err)
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}

	env := &runtimeEnv{cfg: cfg, logger: logger}
	env.closers = append(env.closers, func() error { _ = logger.Sync(); return nil })

	var cache ports.ProbeCache
	if cfg.Redis.URL != "" {
		pc, err := redis.Open(ctx, cfg.Redis.URL, cfg.Redis.TTL)
		if err != nil {
			logger.Warn("probe cache disabled", zap.Error(err))
		} else {
			cache = pc
			env.closers = append([]func() error{pc.Close}, env.closers...)
		}
	}
	env.factory = app.NewFactory(cfg, cache, nil, logger)
	return env, nil
}

func configError(err error) error {
	return withCode(exitConfig, fmt.Errorf("%w: set an API key for at least one enabled source", err))
}
