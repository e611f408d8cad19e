// Package arena plays hunter snakes against each other offline.
//
// Each team behaves like a separate group of agent processes: it owns a
// registry that knows only its own members, so hunters chase every snake
// outside their team and never a teammate.
package arena

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/hunter/game"
	"github.com/brensch/hunter/hunt"
	"github.com/brensch/hunter/rules"
	"github.com/brensch/hunter/store"
)

const startLength = 3

type Config struct {
	Width    int32
	Height   int32
	Teams    int
	TeamSize int
	MaxTurns int
	Food     rules.FoodSettings
	Seed     int64 // 0 seeds from the clock

	// OnTurn, if set, is called with the state after every resolved turn.
	// The state must not be modified.
	OnTurn func(state *game.GameState)
	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Width:    11,
		Height:   11,
		Teams:    2,
		TeamSize: 1,
		MaxTurns: 500,
		Food:     rules.DefaultFoodSettings,
	}
}

func (c Config) validate() error {
	if c.Width < 7 || c.Height < 7 {
		return fmt.Errorf("board %dx%d too small", c.Width, c.Height)
	}
	if c.Teams < 2 || c.TeamSize < 1 {
		return fmt.Errorf("need at least 2 teams of 1, got %d teams of %d", c.Teams, c.TeamSize)
	}
	if n := c.Teams * c.TeamSize; n > len(spawnPoints(c.Width, c.Height)) {
		return fmt.Errorf("%d snakes do not fit on a %dx%d board", n, c.Width, c.Height)
	}
	if c.MaxTurns <= 0 {
		return fmt.Errorf("max turns must be positive")
	}
	return nil
}

// Result summarizes a finished match.
type Result struct {
	MatchID    string
	WinnerTeam int // -1 when nobody survived or the turn limit was hit
	Turns      int
	TimedOut   bool
	Survivors  []string
	Tiers      map[string]int // decisions per hunt.Tier name
}

type seat struct {
	team     int
	selector *hunt.Selector
}

// PlayGame runs one match to completion and returns its result along with
// one decision row per snake per turn.
func PlayGame(ctx context.Context, cfg Config) (Result, []store.DecisionRow, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	state, seats := seatTeams(cfg, rng, logger)
	res := Result{MatchID: state.Id, WinnerTeam: -1, Tiers: make(map[string]int)}
	logger = logger.With("match_id", state.Id)
	logger.Debug("match started", "teams", cfg.Teams, "team_size", cfg.TeamSize, "seed", seed)

	rows := make([]store.DecisionRow, 0, 256)
	for int(state.Turn) < cfg.MaxTurns && teamsAlive(state, seats) > 1 {
		if err := ctx.Err(); err != nil {
			return res, rows, fmt.Errorf("match %s interrupted at turn %d: %w", state.Id, state.Turn, err)
		}

		moves := make(map[string]game.Direction, len(state.Snakes))
		for _, s := range state.Snakes {
			d := seats[s.Id].selector.Decide(state.WithPerspective(s.Id))
			moves[s.Id] = d.Move
			res.Tiers[d.Tier.String()]++
			rows = append(rows, store.DecisionRow{
				GameID:       state.Id,
				Turn:         state.Turn,
				SnakeID:      s.Id,
				Width:        state.Width,
				Height:       state.Height,
				Move:         d.Move.String(),
				Tier:         d.Tier.String(),
				TargetID:     d.TargetID,
				PathLen:      int32(d.PathLen),
				Options:      int32(d.Options),
				Played:       d.Move.String(),
				Source:       store.SourceArena,
				RecordedAtNs: time.Now().UnixNano(),
			})
		}

		state = rules.NextStateSimultaneous(state, moves, rng, cfg.Food)
		if cfg.OnTurn != nil {
			cfg.OnTurn(state)
		}
	}

	res.Turns = int(state.Turn)
	for _, s := range state.Snakes {
		res.Survivors = append(res.Survivors, s.Id)
	}
	switch teamsAlive(state, seats) {
	case 1:
		res.WinnerTeam = seats[state.Snakes[0].Id].team
	case 0:
	default:
		res.TimedOut = true
	}
	logger.Debug("match finished", "turns", res.Turns, "winner_team", res.WinnerTeam, "timed_out", res.TimedOut)
	return res, rows, nil
}

// seatTeams builds the opening position and a selector per snake. Team
// members share one registry.
func seatTeams(cfg Config, rng *rand.Rand, logger *slog.Logger) (*game.GameState, map[string]seat) {
	state := &game.GameState{
		Id:     uuid.NewString(),
		Width:  cfg.Width,
		Height: cfg.Height,
	}

	spawns := spawnPoints(cfg.Width, cfg.Height)
	rng.Shuffle(len(spawns), func(i, j int) { spawns[i], spawns[j] = spawns[j], spawns[i] })

	seats := make(map[string]seat, cfg.Teams*cfg.TeamSize)
	next := 0
	for team := 0; team < cfg.Teams; team++ {
		registry := hunt.NewRegistry()
		selector := hunt.NewSelector(registry, rules.Pathfinder{})
		selector.Rand = rng
		selector.Logger = logger

		for i := 0; i < cfg.TeamSize; i++ {
			id := uuid.NewString()
			registry.Register(state.Id, id)
			seats[id] = seat{team: team, selector: selector}

			body := make([]game.Point, startLength)
			for j := range body {
				body[j] = spawns[next]
			}
			next++
			state.Snakes = append(state.Snakes, game.Snake{
				Id:     id,
				Health: 100,
				Body:   body,
				Squad:  fmt.Sprintf("team-%d", team),
			})
		}
	}

	rules.ApplyFoodSettings(state, rng, rules.FoodSettings{MinimumFood: cfg.Food.MinimumFood})
	return state, seats
}

// spawnPoints lists the standard start cells: corners first, then the
// middle of each edge, one cell in from the wall.
func spawnPoints(w, h int32) []game.Point {
	mx, my := (w-1)/2, (h-1)/2
	return []game.Point{
		{X: 1, Y: 1}, {X: w - 2, Y: h - 2}, {X: 1, Y: h - 2}, {X: w - 2, Y: 1},
		{X: mx, Y: 1}, {X: mx, Y: h - 2}, {X: 1, Y: my}, {X: w - 2, Y: my},
	}
}

func teamsAlive(state *game.GameState, seats map[string]seat) int {
	alive := make(map[int]struct{})
	for _, s := range state.Snakes {
		alive[seats[s.Id].team] = struct{}{}
	}
	return len(alive)
}
