package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"horse.fit/celltrans/internal/cli"
	"horse.fit/celltrans/internal/jobschema"
	"horse.fit/celltrans/internal/translation"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	jobPath := fs.String("job", "-", "Path to the job JSON file (- reads stdin)")
	workers := fs.Int("workers", 0, "Concurrent rows (overrides the job and CELLTRANS_WORKERS)")
	backends := fs.String("backends", "", "Comma-separated backend order for this run")
	force := fs.Bool("force", false, "Retranslate even when a cached translation exists")
	timeout := fs.Duration("timeout", 0, "Cancel the job after this long (0 = no limit)")
	quiet := fs.Bool("quiet", false, "Do not print progress to stderr")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "translate takes no positional arguments; use --job")
		printTranslateUsage()
		return 2
	}
	if *workers < 0 {
		fmt.Fprintln(os.Stderr, "--workers must be >= 0")
		return 2
	}

	payload, err := readJobPayload(*jobPath, os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read job: %v\n", err)
		return 1
	}

	job, err := jobschema.ValidateTranslateJob(payload)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Invalid job:")
		printFieldErrors(jobschema.FieldErrors(err))
		return 2
	}

	rt, err := newRuntime(envLoader, storeOptional)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.Close()

	opts := job.RunOptions()
	if *workers > 0 {
		opts.Workers = *workers
	}
	if order := splitList(*backends); len(order) > 0 {
		opts.Backends = order
	}
	opts.Force = opts.Force || *force
	if !*quiet {
		opts.Progress = func(ev translation.ProgressEvent) {
			fmt.Fprintln(os.Stderr, formatProgress(ev))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *timeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, *timeout)
		defer timeoutCancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			rt.logger.Warn().Msg("interrupt received, finishing rows in flight")
			cancel()
		case <-ctx.Done():
		}
	}()

	report, err := rt.manager.TranslateRows(ctx, job.RowJob(), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Translate failed: %v\n", err)
		return 2
	}

	if err := printJSON(report); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
		return 1
	}

	return translateExitCode(report.Stats)
}

// translateExitCode is 0 when every row was translated or skipped.
func translateExitCode(stats translation.RunStats) int {
	if stats.Failed > 0 || stats.Cancelled > 0 {
		return 1
	}
	return 0
}

func readJobPayload(path string, stdin io.Reader) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func formatProgress(ev translation.ProgressEvent) string {
	line := fmt.Sprintf("[%d/%d] row %d %s", ev.Completed, ev.Total, ev.Row, ev.Outcome.Kind)
	switch {
	case ev.Outcome.Cached:
		line += " (cache)"
	case ev.Outcome.Backend != "":
		line += " via " + ev.Outcome.Backend
	case ev.Outcome.Reason != "":
		line += ": " + ev.Outcome.Reason
	}
	return line
}

func printFieldErrors(fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", key, fields[key])
	}
}

func printTranslateUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  celltrans translate [--job job.json] [--workers 4] [--backends deeplx,google] [--force] [--timeout 10m] [--quiet] [--env .env]")
}
