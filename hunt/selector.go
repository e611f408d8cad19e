package hunt

import (
	"log/slog"
	"math/rand"

	"github.com/brensch/hunter/game"
)

// Pathfinder is the grid capability the policy relies on.
// rules.Pathfinder is the production implementation.
type Pathfinder interface {
	Neighborer
	IsAcceptable(state *game.GameState, p game.Point) bool
	IsSafe(state *game.GameState, p game.Point) bool
	ShortestPath(state *game.GameState, from, to game.Point) ([]game.Point, bool)
}

// Rand picks the fallback move among equally good options.
// *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// globalRand uses the goroutine-safe top-level math/rand source.
type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

// Tier records which rule of the policy produced a move.
type Tier uint8

const (
	TierChase Tier = iota
	TierSafe
	TierAcceptable
	TierDefault
)

func (t Tier) String() string {
	switch t {
	case TierChase:
		return "chase"
	case TierSafe:
		return "safe"
	case TierAcceptable:
		return "acceptable"
	default:
		return "default"
	}
}

// Decision is a move together with how it was reached.
type Decision struct {
	Move     game.Direction
	Tier     Tier
	TargetID string // chased snake, empty unless Tier is TierChase
	PathLen  int    // length of the chase path
	Options  int    // cells the move was drawn from in the fallback tiers
}

// Selector chooses one move per turn. It keeps no per-call state and is
// safe for concurrent use as long as Rand is.
type Selector struct {
	Registry   OwnLookup
	Pathfinder Pathfinder
	Rand       Rand
	Logger     *slog.Logger
}

func NewSelector(registry OwnLookup, pf Pathfinder) *Selector {
	return &Selector{
		Registry:   registry,
		Pathfinder: pf,
		Rand:       globalRand{},
		Logger:     slog.Default(),
	}
}

// SelectMove returns the move for this turn. It never fails.
func (s *Selector) SelectMove(state *game.GameState) game.Direction {
	return s.Decide(state).Move
}

// Decide runs the policy in priority order: chase the target, then a random
// safe neighbor, then a random acceptable neighbor, then DefaultMove.
func (s *Selector) Decide(state *game.GameState) Decision {
	you := state.You()
	if you == nil || len(you.Body) == 0 {
		return Decision{Move: DefaultMove, Tier: TierDefault}
	}
	head := you.Head()

	if d, ok := s.chase(state, head); ok {
		return d
	}

	if opts := s.options(state, head, s.Pathfinder.IsSafe); len(opts) > 0 {
		s.logger().Debug("moving to safe option", "options", opts)
		return Decision{Move: ToDirection(s.Pathfinder, head, s.pick(opts)), Tier: TierSafe, Options: len(opts)}
	}

	if opts := s.options(state, head, s.Pathfinder.IsAcceptable); len(opts) > 0 {
		s.logger().Debug("moving to acceptable option", "options", opts)
		return Decision{Move: ToDirection(s.Pathfinder, head, s.pick(opts)), Tier: TierAcceptable, Options: len(opts)}
	}

	return Decision{Move: DefaultMove, Tier: TierDefault}
}

// chase looks for the shortest path from head to any acceptable cell next
// to the target's head. Candidates are visited in neighbor order and only a
// strictly shorter path replaces the best so far, so ties go to the earlier
// neighbor.
func (s *Selector) chase(state *game.GameState, head game.Point) (Decision, bool) {
	target := SelectTarget(state, s.Registry)
	if target == nil || len(target.Body) == 0 {
		return Decision{}, false
	}
	s.logger().Debug("target snake", "target", target.Id, "head", target.Head())

	var best []game.Point
	for _, cell := range s.Pathfinder.Neighbors(target.Head()) {
		if !s.Pathfinder.IsAcceptable(state, cell) {
			continue
		}
		path, ok := s.Pathfinder.ShortestPath(state, head, cell)
		if !ok || len(path) == 0 {
			continue
		}
		if best == nil || len(path) < len(best) {
			best = path
		}
	}
	if best == nil {
		return Decision{}, false
	}

	return Decision{
		Move:     ToDirection(s.Pathfinder, head, best[0]),
		Tier:     TierChase,
		TargetID: target.Id,
		PathLen:  len(best),
	}, true
}

func (s *Selector) options(state *game.GameState, head game.Point, keep func(*game.GameState, game.Point) bool) []game.Point {
	var out []game.Point
	for _, p := range s.Pathfinder.Neighbors(head) {
		if keep(state, p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Selector) pick(opts []game.Point) game.Point {
	r := s.Rand
	if r == nil {
		r = globalRand{}
	}
	return opts[r.Intn(len(opts))]
}

func (s *Selector) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
