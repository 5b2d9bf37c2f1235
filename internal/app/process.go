package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"hotissue.kr/ember/internal/cli"
	"hotissue.kr/ember/internal/config"
	"hotissue.kr/ember/internal/db"
	"hotissue.kr/ember/internal/gate"
	"hotissue.kr/ember/internal/heat"
	"hotissue.kr/ember/internal/lifecycle"
	"hotissue.kr/ember/internal/linker"
	"hotissue.kr/ember/internal/logging"
	"hotissue.kr/ember/internal/retention"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	rescoreLimit := fs.Int("rescore-limit", 200, "Maximum approved open issues to rescore per cycle")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *rescoreLimit <= 0 {
		fmt.Fprintln(os.Stderr, "--rescore-limit must be > 0")
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
		logger.Error().Err(err).Msg("process command failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	failed := runCycle(ctx, pool, logger, cfg, *rescoreLimit)
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "Process finished with %d failed stage(s)\n", failed)
		return 1
	}
	return 0
}

// runCycle executes one full pipeline pass. A stage that fails outright is
// reported and the later stages still run; the count of failed stages is
// returned.
func runCycle(ctx context.Context, pool *db.Pool, logger zerolog.Logger, cfg *config.Config, rescoreLimit int) int {
	failed := 0

	gateResult, err := gate.NewService(pool, logger, cfg.Thresholds).Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("detect stage failed")
		fmt.Fprintf(os.Stderr, "detect stage failed: %v\n", err)
		failed++
	} else {
		reportStageErrors("detect", gateResult.Errors)
		fmt.Printf("detect clusters=%d created=%d updated=%d auto_approved=%d rejected=%d\n",
			gateResult.Clusters, gateResult.Created, gateResult.Updated, gateResult.AutoApproved, gateResult.Rejected)
	}

	rescoreResult, err := heat.NewService(pool, logger).RescoreApproved(ctx, rescoreLimit)
	if err != nil {
		logger.Error().Err(err).Msg("rescore stage failed")
		fmt.Fprintf(os.Stderr, "rescore stage failed: %v\n", err)
		failed++
	} else {
		reportStageErrors("rescore", rescoreResult.Errors)
		fmt.Printf("rescore issues=%d updated=%d\n", rescoreResult.Issues, rescoreResult.Updated)
	}

	transitionResult, err := lifecycle.NewService(pool, logger, cfg.Thresholds).Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("transition stage failed")
		fmt.Fprintf(os.Stderr, "transition stage failed: %v\n", err)
		failed++
	} else {
		reportStageErrors("transition", transitionResult.Errors)
		fmt.Printf("transition evaluated=%d debated=%d closed=%d\n",
			transitionResult.Evaluated, transitionResult.Debated, transitionResult.Closed)
	}

	linkResult, err := linker.NewService(pool, logger).Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("link stage failed")
		fmt.Fprintf(os.Stderr, "link stage failed: %v\n", err)
		failed++
	} else {
		reportStageErrors("link", linkResult.Errors)
		fmt.Printf("link issues=%d linked_news=%d linked_community=%d\n",
			linkResult.Issues, linkResult.LinkedNews, linkResult.LinkedCommunity)
	}

	cleanResult, err := retention.NewService(pool, logger, cfg.Thresholds).Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("clean stage failed")
		fmt.Fprintf(os.Stderr, "clean stage failed: %v\n", err)
		failed++
	} else {
		fmt.Printf("clean deleted_news=%d deleted_community=%d\n", cleanResult.News, cleanResult.Community)
	}

	return failed
}
