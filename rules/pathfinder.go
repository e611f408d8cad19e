package rules

import "github.com/brensch/hunter/game"

// Pathfinder answers the grid questions the hunter policy asks each turn:
// which cells neighbor a position, which of them can be entered without
// dying, and how far away a cell is. It holds no state.
type Pathfinder struct{}

// Neighbors returns the four adjacent cells in up, right, down, left order.
// Cells may lie off the board.
func (Pathfinder) Neighbors(p game.Point) [4]game.Point {
	var out [4]game.Point
	for i, d := range game.Directions {
		out[i] = p.Add(d.Delta())
	}
	return out
}

// IsAcceptable is false iff moving onto p next turn is certainly fatal:
// off the board, or onto a body segment that will still be there.
func (Pathfinder) IsAcceptable(state *game.GameState, p game.Point) bool {
	if !state.InBounds(p) {
		return false
	}
	return !occupied(state)[p]
}

// IsSafe additionally rejects cells where a head-to-head with an equal or
// longer snake is possible, and tails that stay put if their owner eats.
func (pf Pathfinder) IsSafe(state *game.GameState, p game.Point) bool {
	if !pf.IsAcceptable(state, p) {
		return false
	}

	you := state.You()
	for i := range state.Snakes {
		other := &state.Snakes[i]
		if other.Id == state.YouId || len(other.Body) == 0 {
			continue
		}
		if you == nil || other.Length() >= you.Length() {
			for _, n := range pf.Neighbors(other.Head()) {
				if n == p {
					return false
				}
			}
		}
		if tail := other.Body[len(other.Body)-1]; tail == p && nextToFood(state, other.Head()) {
			return false
		}
	}
	return true
}

// ShortestPath runs a breadth-first search from `from` to `to` over
// acceptable cells, expanding neighbors in enumeration order. The path
// excludes `from` and ends with `to`. It is empty when from == to and
// ok is false when `to` cannot be reached.
func (pf Pathfinder) ShortestPath(state *game.GameState, from, to game.Point) (path []game.Point, ok bool) {
	if from == to {
		return []game.Point{}, true
	}

	blocked := occupied(state)
	parent := map[game.Point]game.Point{from: from}
	queue := []game.Point{from}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, n := range pf.Neighbors(cur) {
			if _, seen := parent[n]; seen {
				continue
			}
			if !state.InBounds(n) || blocked[n] {
				continue
			}
			parent[n] = cur
			if n == to {
				return unwind(parent, from, to), true
			}
			queue = append(queue, n)
		}
	}
	return nil, false
}

func unwind(parent map[game.Point]game.Point, from, to game.Point) []game.Point {
	var rev []game.Point
	for p := to; p != from; p = parent[p] {
		rev = append(rev, p)
	}
	path := make([]game.Point, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}

// occupied marks every body segment that will still be on the board next
// turn. A tail moves away unless it is stacked, which happens right after
// its snake ate.
func occupied(state *game.GameState) map[game.Point]bool {
	out := make(map[game.Point]bool, len(state.Snakes)*8)
	for _, s := range state.Snakes {
		n := len(s.Body)
		for i, p := range s.Body {
			if i == n-1 && n > 1 && s.Body[n-2] != p {
				continue
			}
			out[p] = true
		}
	}
	return out
}

func nextToFood(state *game.GameState, head game.Point) bool {
	for _, f := range state.Food {
		dx, dy := f.X-head.X, f.Y-head.Y
		if (dx == 0 && (dy == 1 || dy == -1)) || (dy == 0 && (dx == 1 || dx == -1)) {
			return true
		}
	}
	return false
}
