// Command debuggame plays one seeded arena match and prints every board.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brensch/hunter/arena"
	"github.com/brensch/hunter/game"
	"github.com/brensch/hunter/logging"
	"github.com/brensch/hunter/store"
)

func main() {
	seed := flag.Int64("seed", 1, "Match seed (0 seeds from the clock)")
	teams := flag.Int("teams", 2, "Teams per match")
	teamSize := flag.Int("team-size", 1, "Hunters per team")
	maxTurns := flag.Int("max-turns", 300, "Turn limit")
	quiet := flag.Bool("quiet", false, "Only print the result, not every board")
	outDir := flag.String("out-dir", "", "If set, write the match decisions as parquet here")
	logLevel := flag.String("log-level", "debug", "Log level: debug, info, warn, error")
	flag.Parse()

	logger, err := logging.New(os.Stderr, logging.FormatText, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}

	cfg := arena.DefaultConfig()
	cfg.Seed = *seed
	cfg.Teams = *teams
	cfg.TeamSize = *teamSize
	cfg.MaxTurns = *maxTurns
	cfg.Logger = logger
	if !*quiet {
		cfg.OnTurn = func(state *game.GameState) {
			fmt.Printf("%s  %d alive\n\n", game.Render(state), len(state.Snakes))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, rows, err := arena.PlayGame(ctx, cfg)
	if err != nil {
		logger.Error("debug game failed", "err", err)
		os.Exit(1)
	}

	winner := fmt.Sprintf("team %d", res.WinnerTeam)
	switch {
	case res.TimedOut:
		winner = "none (turn limit)"
	case res.WinnerTeam < 0:
		winner = "draw"
	}
	fmt.Printf("match %s: %d turns, winner %s\n", res.MatchID, res.Turns, winner)
	for _, tier := range []string{"chase", "safe", "acceptable", "default"} {
		fmt.Printf("  %-10s %d\n", tier, res.Tiers[tier])
	}

	if *outDir != "" {
		path, err := store.WriteDecisionsAtomic(*outDir, rows)
		if err != nil {
			logger.Error("write decisions", "err", err)
			os.Exit(1)
		}
		fmt.Printf("decisions written to %s\n", path)
	}
}
