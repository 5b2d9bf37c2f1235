package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"hotissue.kr/ember/internal/cli"
	"hotissue.kr/ember/internal/config"
	"hotissue.kr/ember/internal/db"
	"hotissue.kr/ember/internal/logging"
	"hotissue.kr/ember/internal/retention"
)

func runClean(args []string) int {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("clean command failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc := retention.NewService(pool, logger, cfg.Thresholds)
	result, err := svc.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("clean failed")
		fmt.Fprintf(os.Stderr, "Clean failed: %v\n", err)
		return 1
	}

	fmt.Printf("clean deleted_news=%d deleted_community=%d retain_days=%d\n",
		result.News, result.Community, cfg.Thresholds.RetainDays)
	return 0
}
