// Command report prints aggregate statistics over recorded decisions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/brensch/hunter/logging"
	"github.com/brensch/hunter/report"
)

func main() {
	roots := flag.String("roots", getEnvOrDefault("DECISIONS_DIR", "data"), "Comma separated directories holding decision parquet files")
	asJSON := flag.Bool("json", false, "Print the summary as JSON")
	timeout := flag.Duration("timeout", 5*time.Minute, "Query timeout")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", getEnvOrDefault("LOG_FORMAT", logging.FormatText), "Log format: pretty, json, text")
	flag.Parse()

	logger, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	s, err := report.Summarize(ctx, strings.Split(*roots, ","))
	if err != nil {
		logger.Error("summarize", "roots", *roots, "err", err)
		os.Exit(1)
	}
	logger.Debug("summarized", "rows", s.Rows, "elapsed", time.Since(start))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			logger.Error("encode", "err", err)
			os.Exit(1)
		}
		return
	}
	printSummary(os.Stdout, s)
}

func printSummary(w io.Writer, s report.Summary) {
	fmt.Fprintf(w, "Decisions:          %d\n", s.Rows)
	fmt.Fprintf(w, "Games:              %d\n", s.Games)
	fmt.Fprintf(w, "Mean chase path:    %.2f\n", s.MeanChasePathLen)
	fmt.Fprintf(w, "Played agreement:   %.1f%% (%d/%d)\n\n", 100*s.AgreementRate(), s.Agreed, s.Compared)
	printCounts(w, "Tiers", s.Tiers, s.Rows)
	printCounts(w, "Moves", s.Moves, s.Rows)
	printCounts(w, "Sources", s.Sources, s.Rows)
}

func printCounts(w io.Writer, title string, counts map[string]int64, total int64) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		share := 0.0
		if total > 0 {
			share = 100 * float64(counts[k]) / float64(total)
		}
		fmt.Fprintf(w, "  %-12s %10d  %5.1f%%\n", k, counts[k], share)
	}
	fmt.Fprintln(w)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
