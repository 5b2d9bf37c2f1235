package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"hotissue.kr/ember/internal/cli"
)

func runCandidates(args []string) int {
	fs := flag.NewFlagSet("candidates", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	limit := fs.Int("limit", 50, "Maximum candidates to list")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "candidates does not accept positional arguments")
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	candidates, err := pool.ListPendingCandidates(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list candidates: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(candidates); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(candidates))
	for _, candidate := range candidates {
		rows = append(rows, []string{
			fmt.Sprintf("%d", candidate.CandidateID),
			truncateForTable(candidate.Title, 40),
			candidate.SourceType,
			fmt.Sprintf("%.1f", candidate.AIScore),
			candidate.AICategory,
			truncateForTable(candidate.AIReason, 50),
			formatUTCTimestamp(candidate.CreatedAt),
		})
	}

	headers := []string{"id", "title", "source", "score", "category", "reason", "created_at"}
	if err := writeTable(headers, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	fmt.Printf("\n%d candidate(s)\n", len(candidates))
	return 0
}
