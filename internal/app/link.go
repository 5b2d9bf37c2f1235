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
	"hotissue.kr/ember/internal/linker"
	"hotissue.kr/ember/internal/logging"
)

func runLink(args []string) int {
	fs := flag.NewFlagSet("link", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")

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
		logger.Error().Err(err).Msg("link command failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc := linker.NewService(pool, logger)
	result, err := svc.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("link failed")
		fmt.Fprintf(os.Stderr, "Link failed: %v\n", err)
		return 1
	}

	reportStageErrors("link", result.Errors)
	fmt.Printf("link issues=%d linked_news=%d linked_community=%d errors=%d\n",
		result.Issues, result.LinkedNews, result.LinkedCommunity, len(result.Errors))
	return 0
}
