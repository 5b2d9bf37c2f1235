package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "detect":
		return runDetect(args[1:])
	case "rescore":
		return runRescore(args[1:])
	case "transition":
		return runTransition(args[1:])
	case "link":
		return runLink(args[1:])
	case "score":
		return runScore(args[1:])
	case "clean":
		return runClean(args[1:])
	case "process", "run-once":
		return runProcess(args[1:])
	case "watch":
		return runWatch(args[1:])
	case "issues":
		return runIssues(args[1:])
	case "candidates":
		return runCandidates(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "ember CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  ember <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health      Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  detect      Cluster unlinked items and register qualifying issues")
	fmt.Fprintln(os.Stderr, "  rescore     Recompute heat for approved open issues")
	fmt.Fprintln(os.Stderr, "  transition  Apply lifecycle transitions to approved open issues")
	fmt.Fprintln(os.Stderr, "  link        Attach matching unlinked items to open issues")
	fmt.Fprintln(os.Stderr, "  score       Stage high-impact items through the AI relevance filter")
	fmt.Fprintln(os.Stderr, "  clean       Delete unlinked items past the retention window")
	fmt.Fprintln(os.Stderr, "  process     Run detect + rescore + transition + link + clean once")
	fmt.Fprintln(os.Stderr, "  run-once    Alias for process")
	fmt.Fprintln(os.Stderr, "  watch       Run the process cycle on an interval until interrupted")
	fmt.Fprintln(os.Stderr, "  issues      List issues with member counts")
	fmt.Fprintln(os.Stderr, "  candidates  List staged AI candidates awaiting review")
	fmt.Fprintln(os.Stderr, "  serve       Start the Echo ops API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"ember <command> -h\" for command-specific flags.")
}
