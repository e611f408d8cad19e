package hunt

import "github.com/brensch/hunter/game"

// DefaultMove is returned when nothing better is known.
const DefaultMove = game.Up

// Neighborer enumerates the four cells around a position in up, right,
// down, left order.
type Neighborer interface {
	Neighbors(p game.Point) [4]game.Point
}

// ToDirection maps a cell next to head back to the move that reaches it.
// Destinations always come from the same enumeration, so the Up fallback
// is never hit in practice.
func ToDirection(nb Neighborer, head, dest game.Point) game.Direction {
	for i, p := range nb.Neighbors(head) {
		if p == dest {
			return game.Directions[i]
		}
	}
	return game.Up
}
