package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"hotissue.kr/ember/internal/cli"
	"hotissue.kr/ember/internal/db"
)

func runIssues(args []string) int {
	fs := flag.NewFlagSet("issues", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	status := fs.String("status", "", "Filter by lifecycle status (점화, 논란중, 종결)")
	approval := fs.String("approval", "", "Filter by approval status (대기, 승인, 반려)")
	limit := fs.Int("limit", 50, "Maximum issues to list")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "issues does not accept positional arguments")
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

	summaries, err := pool.ListIssueSummaries(ctx, db.IssueListOptions{
		Status:         strings.TrimSpace(*status),
		ApprovalStatus: strings.TrimSpace(*approval),
		Limit:          *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list issues: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(summaries); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(summaries))
	for _, issue := range summaries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", issue.IssueID),
			truncateForTable(issue.Title, 40),
			issue.Category,
			issue.Status,
			issue.ApprovalStatus,
			formatHeat(issue.HeatIndex),
			fmt.Sprintf("%d", issue.NewsCount),
			fmt.Sprintf("%d", issue.CommunityCount),
			formatUTCTimestamp(issue.UpdatedAt),
		})
	}

	headers := []string{"id", "title", "category", "status", "approval", "heat", "news", "community", "updated_at"}
	if err := writeTable(headers, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	fmt.Printf("\n%d issue(s)\n", len(summaries))
	return 0
}
