package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"horse.fit/celltrans/internal/cli"
	"horse.fit/celltrans/internal/globaltime"
	"horse.fit/celltrans/internal/translation"
)

type backendRow struct {
	ID            string  `json:"id"`
	Enabled       bool    `json:"enabled"`
	Priority      int     `json:"priority"`
	TimeoutMS     int64   `json:"timeout_ms"`
	MaxRetries    int     `json:"max_retries"`
	BackoffBaseMS int64   `json:"backoff_base_ms"`
	RateLimitRPS  float64 `json:"rate_limit_rps,omitempty"`
	Burst         int     `json:"burst,omitempty"`
}

type probeRow struct {
	Backend   string `json:"backend"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

const (
	probeStatusOK          = "ok"
	probeStatusFailed      = "failed"
	probeStatusUnsupported = "unsupported"
)

func runBackends(args []string) int {
	fs := flag.NewFlagSet("backends", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	formatRaw := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	format, err := parseOutputFormat(*formatRaw, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	rt, err := newRuntime(envLoader, storeOff)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.Close()

	rows := backendRows(rt.registry.Snapshot())
	if format == outputFormatJSON {
		if err := printJSON(map[string]any{"backends": rows}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write backends: %v\n", err)
			return 1
		}
		return 0
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		rate := "-"
		if row.RateLimitRPS > 0 {
			rate = fmt.Sprintf("%s/s burst %d", strconv.FormatFloat(row.RateLimitRPS, 'f', -1, 64), row.Burst)
		}
		table = append(table, []string{
			row.ID,
			strconv.FormatBool(row.Enabled),
			strconv.Itoa(row.Priority),
			(time.Duration(row.TimeoutMS) * time.Millisecond).String(),
			strconv.Itoa(row.MaxRetries),
			(time.Duration(row.BackoffBaseMS) * time.Millisecond).String(),
			rate,
		})
	}
	if err := writeTable([]string{"BACKEND", "ENABLED", "PRIORITY", "TIMEOUT", "ATTEMPTS", "BACKOFF", "RATE"}, table); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write backends: %v\n", err)
		return 1
	}
	return 0
}

func backendRows(snapshot *translation.Snapshot) []backendRow {
	configs := snapshot.Configs()
	rows := make([]backendRow, 0, len(configs))
	for _, cfg := range configs {
		rows = append(rows, backendRow{
			ID:            cfg.ID,
			Enabled:       cfg.Enabled,
			Priority:      cfg.Priority,
			TimeoutMS:     cfg.Timeout.Milliseconds(),
			MaxRetries:    cfg.MaxRetries,
			BackoffBaseMS: cfg.BackoffBase.Milliseconds(),
			RateLimitRPS:  cfg.RateLimit,
			Burst:         cfg.Burst,
		})
	}
	return rows
}

func runProbe(args []string) int {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	only := fs.String("backend", "", "Probe a single backend")
	timeout := fs.Duration("timeout", 10*time.Second, "Per-backend probe timeout")
	formatRaw := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	format, err := parseOutputFormat(*formatRaw, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *timeout <= 0 {
		fmt.Fprintln(os.Stderr, "--timeout must be > 0")
		return 2
	}

	rt, err := newRuntime(envLoader, storeOff)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.Close()

	backends := rt.registry.Backends()
	if id := strings.TrimSpace(*only); id != "" {
		backend, err := rt.registry.Backend(id)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		backends = []translation.Backend{backend}
	}

	rows := probeBackends(context.Background(), backends, *timeout)

	failed := 0
	for _, row := range rows {
		if row.Status == probeStatusFailed {
			failed++
			rt.logger.Warn().Str("backend", row.Backend).Str("error", row.Error).Msg("backend probe failed")
		}
	}

	if format == outputFormatJSON {
		if err := printJSON(map[string]any{"probes": rows}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write probes: %v\n", err)
			return 1
		}
	} else {
		table := make([][]string, 0, len(rows))
		for _, row := range rows {
			table = append(table, []string{
				row.Backend,
				row.Status,
				strconv.FormatInt(row.LatencyMS, 10) + "ms",
				truncateForTable(row.Error, 80),
			})
		}
		if err := writeTable([]string{"BACKEND", "STATUS", "LATENCY", "ERROR"}, table); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write probes: %v\n", err)
			return 1
		}
	}

	if failed > 0 {
		return 1
	}
	return 0
}

// probeBackends probes concurrently and returns rows in input order.
func probeBackends(ctx context.Context, backends []translation.Backend, timeout time.Duration) []probeRow {
	rows := make([]probeRow, len(backends))
	var group errgroup.Group
	for i, backend := range backends {
		group.Go(func() error {
			row := probeRow{Backend: backend.Name()}
			prober, ok := backend.(translation.Prober)
			if !ok {
				row.Status = probeStatusUnsupported
				rows[i] = row
				return nil
			}

			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := globaltime.Now()
			err := prober.Probe(probeCtx)
			row.LatencyMS = globaltime.Since(start).Milliseconds()
			row.Status = probeStatusOK
			if err != nil {
				row.Status = probeStatusFailed
				row.Error = err.Error()
			}
			rows[i] = row
			return nil
		})
	}
	_ = group.Wait()
	return rows
}
