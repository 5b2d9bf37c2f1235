package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotissue.kr/ember/internal/cli"
	"hotissue.kr/ember/internal/config"
	"hotissue.kr/ember/internal/db"
	"hotissue.kr/ember/internal/logging"
)

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	interval := fs.Duration("interval", 10*time.Minute, "Delay between pipeline cycles")
	cycleTimeout := fs.Duration("cycle-timeout", 4*time.Minute, "Timeout for a single cycle")
	rescoreLimit := fs.Int("rescore-limit", 200, "Maximum approved open issues to rescore per cycle")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *interval < time.Second {
		fmt.Fprintln(os.Stderr, "--interval must be >= 1s")
		return 2
	}
	if *cycleTimeout < time.Second {
		fmt.Fprintln(os.Stderr, "--cycle-timeout must be >= 1s")
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

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.NewPool(dbCtx, cfg)
	dbCancel()
	if err != nil {
		logger.Error().Err(err).Msg("watch command failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Dur("interval", *interval).
		Dur("cycle_timeout", *cycleTimeout).
		Msg("watch loop started")

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	cycle := 0
	for {
		cycle++
		cycleCtx, cycleCancel := context.WithTimeout(ctx, *cycleTimeout)
		failed := runCycle(cycleCtx, pool, logger, cfg, *rescoreLimit)
		cycleCancel()
		if failed > 0 {
			logger.Warn().Int("cycle", cycle).Int("failed_stages", failed).Msg("cycle finished with failures")
		} else {
			logger.Info().Int("cycle", cycle).Msg("cycle finished")
		}

		select {
		case <-ctx.Done():
			logger.Info().Int("cycles", cycle).Msg("watch loop stopped")
			return 0
		case <-ticker.C:
		}
	}
}
