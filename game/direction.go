package game

import "fmt"

// Direction is one of the four cardinal moves. The numeric order is the
// enumeration order used everywhere neighbors are listed: up, right, down, left.
type Direction int8

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Directions lists every move in enumeration order.
var Directions = [4]Direction{Up, Right, Down, Left}

var deltas = [4]Point{
	Up:    {X: 0, Y: 1},
	Right: {X: 1, Y: 0},
	Down:  {X: 0, Y: -1},
	Left:  {X: -1, Y: 0},
}

// Delta is the unit offset for d.
func (d Direction) Delta() Point {
	if d < Up || d > Left {
		return Point{}
	}
	return deltas[d]
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("direction(%d)", int8(d))
	}
}
