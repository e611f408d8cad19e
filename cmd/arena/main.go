// Command arena runs hunter self-play matches and records every decision.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/hunter/arena"
	"github.com/brensch/hunter/game"
	"github.com/brensch/hunter/logging"
	"github.com/brensch/hunter/rules"
	"github.com/brensch/hunter/store"
)

var totalTurns atomic.Int64
var totalGames atomic.Int64

func main() {
	outDir := flag.String("out-dir", getEnvOrDefault("DECISIONS_DIR", "data/arena"), "Output directory for decision parquet batches")
	workers := flag.Int("workers", getEnvIntOrDefault("WORKERS", 8), "Number of concurrent matches")
	maxGames := flag.Int64("max-games", 0, "If > 0, stop after this many games (across all workers)")
	width := flag.Int("width", 11, "Board width")
	height := flag.Int("height", 11, "Board height")
	teams := flag.Int("teams", 2, "Teams per match")
	teamSize := flag.Int("team-size", 1, "Hunters per team")
	maxTurns := flag.Int("max-turns", 500, "Turn limit per match")
	minFood := flag.Int("min-food", rules.DefaultFoodSettings.MinimumFood, "Minimum food on the board")
	foodChance := flag.Int("food-chance", rules.DefaultFoodSettings.FoodSpawnChance, "Percent chance of extra food each turn")
	flushEvery := flag.Duration("flush-every", getEnvDurationOrDefault("FLUSH_EVERY", time.Minute), "Flush decisions at least this often")
	noTUI := flag.Bool("no-tui", false, "Log progress instead of running the terminal UI")
	logFile := flag.String("log-file", "arena.log", "Log destination while the terminal UI is running")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", getEnvOrDefault("LOG_FORMAT", logging.FormatPretty), "Log format: pretty, json, text")
	flag.Parse()

	// Logs would tear the TUI, so they go to a file while it runs.
	var logOut io.Writer = os.Stderr
	if !*noTUI {
		f, err := os.OpenFile(*logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(logOut, *logFormat, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	cfg := arena.DefaultConfig()
	cfg.Width = int32(*width)
	cfg.Height = int32(*height)
	cfg.Teams = *teams
	cfg.TeamSize = *teamSize
	cfg.MaxTurns = *maxTurns
	cfg.Food = rules.FoodSettings{MinimumFood: *minFood, FoodSpawnChance: *foodChance}
	cfg.OnTurn = func(*game.GameState) { totalTurns.Add(1) }
	cfg.Logger = logger

	recorder, err := store.NewRecorder(store.RecorderConfig{OutDir: *outDir, FlushEvery: *flushEvery}, logger)
	if err != nil {
		logger.Error("recorder", "err", err)
		os.Exit(1)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	updates := make(chan GameUpdate, *workers)

	logger.Info("starting arena", "workers", *workers, "teams", cfg.Teams, "team_size", cfg.TeamSize, "out_dir", *outDir)

	var workerWG sync.WaitGroup
	for i := 0; i < *workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			runWorker(ctx, cancel, workerID, cfg, *maxGames, recorder, updates)
		}(i)
	}

	if *noTUI {
		logProgress(ctx, logger, updates)
	} else {
		p := tea.NewProgram(initialModel(updates))
		go func() {
			<-ctx.Done()
			p.Quit()
		}()
		if _, err := p.Run(); err != nil {
			logger.Error("tui", "err", err)
		}
		cancel()
	}

	logger.Info("shutdown requested; waiting for workers to finish current games")
	workerWG.Wait()
	if err := recorder.Close(); err != nil {
		logger.Error("recorder close", "err", err)
	}
	logger.Info("shutdown complete", "games", totalGames.Load(), "turns", totalTurns.Load(), "recorder", recorder.Stats())
}

func runWorker(ctx context.Context, cancel context.CancelFunc, workerID int, cfg arena.Config, maxGames int64, recorder *store.Recorder, updates chan<- GameUpdate) {
	for ctx.Err() == nil {
		cfg.Seed = time.Now().UnixNano() + int64(workerID)*1000003
		res, rows, err := arena.PlayGame(ctx, cfg)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Error("match failed", "worker", workerID, "err", err)
			}
			return
		}

		for _, row := range rows {
			recorder.Record(row)
		}
		total := totalGames.Add(1)
		if maxGames > 0 && total >= maxGames {
			cancel()
		}

		// Avoid blocking shutdown if the UI loop stops consuming.
		select {
		case updates <- GameUpdate{WorkerID: workerID, Result: res, Rows: len(rows)}:
		default:
		}
	}
}

func logProgress(ctx context.Context, logger *slog.Logger, updates <-chan GameUpdate) {
	startTime := time.Now()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			logger.Debug(summarize(u), "match_id", u.Result.MatchID, "tiers", u.Result.Tiers)
		case <-ticker.C:
			duration := time.Since(startTime)
			logger.Info("progress",
				"games", totalGames.Load(),
				"turns", totalTurns.Load(),
				"games_per_sec", float64(totalGames.Load())/duration.Seconds(),
			)
		}
	}
}

// Environment variable helpers
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
