package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"hotissue.kr/ember/internal/aifilter"
	"hotissue.kr/ember/internal/cli"
	"hotissue.kr/ember/internal/config"
	"hotissue.kr/ember/internal/db"
	"hotissue.kr/ember/internal/logging"
)

func runScore(args []string) int {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 3*time.Minute, "Command timeout")

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

	scorer, err := aifilter.NewChatClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relevance scoring unavailable: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("score command failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc := aifilter.NewService(pool, logger, scorer, cfg.Thresholds)
	result, err := svc.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("score failed")
		fmt.Fprintf(os.Stderr, "Score failed: %v\n", err)
		return 1
	}

	reportStageErrors("score", result.Errors)
	fmt.Printf("score prefiltered=%d batches=%d scored=%d dropped=%d staged=%d errors=%d\n",
		result.Prefiltered, result.Batches, result.Scored, result.Dropped, result.Staged, len(result.Errors))
	return 0
}
