// Command replay downloads finished games and re-runs the hunter policy on
// every turn, recording what it would have done next to what was played.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brensch/hunter/hunt"
	"github.com/brensch/hunter/logging"
	"github.com/brensch/hunter/replay"
	"github.com/brensch/hunter/replay/discovery"
	"github.com/brensch/hunter/rules"
	"github.com/brensch/hunter/store"
)

func main() {
	games := flag.String("game", "", "Comma separated game ids to replay (skips discovery)")
	snake := flag.String("snake", "", "Snake id or name to re-decide for (empty: every snake)")
	outDir := flag.String("out-dir", getEnvOrDefault("OUT_DIR", "data/replay"), "Directory to write batch .parquet files")
	logPath := flag.String("log-path", getEnvOrDefault("SEEN_LOG", "data/replay/seen_games.log"), "Append-only log of game IDs already replayed")
	flushGames := flag.Int("flush-games", getEnvIntOrDefault("FLUSH_GAMES", 100), "Flush when buffered games reaches this count")
	flushEvery := flag.Duration("flush-every", getEnvDurationOrDefault("FLUSH_EVERY", 10*time.Minute), "Flush at this interval regardless of buffered count")
	maxPlayers := flag.Int("max-players", getEnvIntOrDefault("MAX_PLAYERS", 50), "Maximum number of players to check from leaderboard")
	requestDelay := flag.Duration("delay", getEnvDurationOrDefault("DELAY", 500*time.Millisecond), "Delay between HTTP requests")
	engineURL := flag.String("engine-url", getEnvOrDefault("ENGINE_URL", replay.DefaultConfig().EngineURL), "Engine websocket URL template")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", getEnvOrDefault("LOG_FORMAT", logging.FormatPretty), "Log format: pretty, json, text")
	flag.Parse()

	logger, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	seen, err := store.OpenSeenLog(*logPath)
	if err != nil {
		logger.Error("open seen log", "err", err)
		os.Exit(1)
	}
	defer seen.Close()
	logger.Info("loaded seen log", "path", *logPath, "games", seen.Count())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gameIDs := make(chan string, 64)
	go func() {
		defer close(gameIDs)
		if *games != "" {
			for _, id := range strings.Split(*games, ",") {
				if id = strings.TrimSpace(id); id != "" {
					select {
					case gameIDs <- id:
					case <-ctx.Done():
						return
					}
				}
			}
			return
		}
		dcfg := discovery.DefaultConfig()
		dcfg.MaxPlayers = *maxPlayers
		dcfg.RequestDelay = *requestDelay
		dcfg.Logger = logger
		if err := discovery.NewWorker(dcfg, seen).Discover(ctx, gameIDs); err != nil && ctx.Err() == nil {
			logger.Error("discovery", "err", err)
		}
	}()

	dlConfig := replay.DefaultConfig()
	dlConfig.EngineURL = *engineURL
	dlConfig.Logger = logger

	registry := hunt.NewRegistry()
	selector := hunt.NewSelector(registry, rules.Pathfinder{})
	selector.Logger = logger

	r := &replayer{
		outDir:     *outDir,
		flushGames: max(*flushGames, 1),
		seen:       seen,
		logger:     logger,
	}

	flushTicker := time.NewTicker(*flushEvery)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flush("signal")
			logger.Info("interrupted; exiting")
			return
		case <-flushTicker.C:
			r.flush("ticker")
		case gameID, ok := <-gameIDs:
			if !ok {
				r.flush("final")
				r.logSummary()
				return
			}
			if seen.Has(gameID) {
				r.skipped++
				continue
			}

			g, err := replay.Download(ctx, dlConfig, gameID)
			if err != nil {
				r.failed++
				logger.Warn("download failed", "game_id", gameID, "err", err)
				continue
			}

			snakes := pickSnakes(g, *snake)
			if len(snakes) == 0 {
				r.failed++
				logger.Warn("snake not in game", "game_id", gameID, "snake", *snake)
				continue
			}
			for _, id := range snakes {
				replay.RegisterSquad(registry, g, id)
				rows, agg := replay.Redecide(g, id, selector)
				registry.Forget(g.ID)
				r.add(rows, agg)
				logger.Debug("replayed", "game_id", gameID, "snake_id", id, "rows", len(rows), "agreement", agg.Rate())
			}
			r.games = append(r.games, gameID)
			r.replayed++
			if len(r.games) >= r.flushGames {
				r.flush("count")
			}
		}
	}
}

type replayer struct {
	outDir     string
	flushGames int
	seen       *store.SeenLog
	logger     *slog.Logger

	rows  []store.DecisionRow
	games []string
	agg   replay.Agreement

	replayed, skipped, failed, batches, rowsWritten int
}

func (r *replayer) add(rows []store.DecisionRow, agg replay.Agreement) {
	r.rows = append(r.rows, rows...)
	r.agg.Compared += agg.Compared
	r.agg.Agreed += agg.Agreed
}

func (r *replayer) flush(reason string) {
	if len(r.games) == 0 {
		return
	}
	if len(r.rows) > 0 {
		outPath, err := store.WriteDecisionsAtomic(r.outDir, r.rows)
		if err != nil {
			r.logger.Error("flush failed", "reason", reason, "err", err)
			return
		}
		r.batches++
		r.rowsWritten += len(r.rows)
		r.logger.Info("flushed batch", "reason", reason, "games", len(r.games), "rows", len(r.rows), "path", outPath)
	}
	// Parquet is already on disk; a failed log append only means a re-replay later.
	if err := r.seen.Add(r.games...); err != nil {
		r.logger.Error("seen log append failed", "reason", reason, "err", err)
	}
	r.rows = r.rows[:0]
	r.games = r.games[:0]
}

func (r *replayer) logSummary() {
	r.logger.Info("replay complete",
		"replayed", r.replayed,
		"skipped", r.skipped,
		"failed", r.failed,
		"batches", r.batches,
		"rows", r.rowsWritten,
		"agreement", r.agg.Rate(),
	)
}

// pickSnakes resolves the -snake flag against the first frame.
func pickSnakes(g *replay.Game, want string) []string {
	var ids []string
	for _, s := range g.Frames[0].Snakes {
		if want == "" || s.ID == want || strings.EqualFold(s.Name, want) {
			ids = append(ids, s.ID)
		}
	}
	return ids
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
