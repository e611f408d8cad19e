package rules

import (
	"math/rand"

	"github.com/brensch/hunter/game"
)

const maxHealth = 100

// NextStateSimultaneous advances the game state with moves for all snakes.
//
// Snakes without a move are eliminated. Movement follows the standard
// ruleset: every snake steps forward dropping its tail, snakes landing on
// food are fed and grow by duplicating their new tail, then eliminations are
// applied for starvation, walls, body collisions and head-to-head losses.
// Food is replenished afterwards according to settings. A nil rng falls back
// to deterministic placement.
func NextStateSimultaneous(state *game.GameState, moves map[string]game.Direction, rng *rand.Rand, settings FoodSettings) *game.GameState {
	next := state.Clone()
	next.Turn++

	moved := make(map[string]bool, len(next.Snakes))
	for i := range next.Snakes {
		s := &next.Snakes[i]
		move, ok := moves[s.Id]
		if !ok || len(s.Body) == 0 {
			continue
		}
		head := s.Head().Add(move.Delta())
		s.Body = append([]game.Point{head}, s.Body[:len(s.Body)-1]...)
		s.Health--
		moved[s.Id] = true
	}

	// Feeding happens before eliminations so a snake eating on its last
	// point of health survives.
	eaten := make(map[game.Point]bool)
	for i := range next.Snakes {
		s := &next.Snakes[i]
		if !moved[s.Id] {
			continue
		}
		for _, f := range next.Food {
			if f == s.Head() {
				s.Health = maxHealth
				s.Body = append(s.Body, s.Body[len(s.Body)-1])
				eaten[f] = true
				break
			}
		}
	}
	if len(eaten) > 0 {
		remaining := make([]game.Point, 0, len(next.Food))
		for _, f := range next.Food {
			if !eaten[f] {
				remaining = append(remaining, f)
			}
		}
		next.Food = remaining
	}

	dead := make(map[string]bool)
	for _, s := range next.Snakes {
		if !moved[s.Id] || s.Health <= 0 || !next.InBounds(s.Head()) {
			dead[s.Id] = true
		}
	}

	// Body collisions are judged against bodies after movement; heads are
	// handled separately below.
	for _, s := range next.Snakes {
		if dead[s.Id] {
			continue
		}
		head := s.Head()
		for _, other := range next.Snakes {
			if !moved[other.Id] {
				continue
			}
			for i, p := range other.Body {
				if i == 0 {
					continue
				}
				if p == head {
					dead[s.Id] = true
				}
			}
		}
	}

	for i := 0; i < len(next.Snakes); i++ {
		a := next.Snakes[i]
		if !moved[a.Id] {
			continue
		}
		for j := i + 1; j < len(next.Snakes); j++ {
			b := next.Snakes[j]
			if !moved[b.Id] || a.Head() != b.Head() {
				continue
			}
			switch {
			case a.Length() > b.Length():
				dead[b.Id] = true
			case b.Length() > a.Length():
				dead[a.Id] = true
			default:
				dead[a.Id] = true
				dead[b.Id] = true
			}
		}
	}

	alive := make([]game.Snake, 0, len(next.Snakes))
	for _, s := range next.Snakes {
		if dead[s.Id] {
			continue
		}
		alive = append(alive, s)
	}
	next.Snakes = alive

	applyFoodRules(next, rng, settings, 0x4E455854) // "NEXT"
	return next
}

// IsGameOver returns true if the game is over (0 or 1 snake left)
func IsGameOver(state *game.GameState) bool {
	living := 0
	for _, s := range state.Snakes {
		if s.Health > 0 {
			living++
		}
	}
	return living <= 1
}
