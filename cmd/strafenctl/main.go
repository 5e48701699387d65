package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"strafen/internal/cli"
	"strafen/internal/log"
)

func main() {
	cli.LoadEnvFile()

	// Logs go to stderr so command output stays parseable.
	logger := cli.SetupLoggerTo(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), log.ComponentCLI)

	open := func(ctx context.Context) (cli.Ledger, func(), error) {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return nil, nil, err
		}
		logger = cli.SetupLoggerTo(os.Stderr, cfg.LogLevel, cfg.LogFormat, log.ComponentCLI)

		engine, res, err := cli.OpenLedger(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		release := func() {
			if res.Cleanup == nil {
				return
			}
			if err := res.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", log.FieldError, err)
			}
		}
		return engine, release, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(open).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
