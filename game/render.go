package game

import (
	"fmt"
	"strings"
)

// Render draws the board as ASCII with y growing upward. From the
// perspective of YouId: O/o is you, S/s other snakes, F food, x hazards.
func Render(state *GameState) string {
	grid := make([][]byte, state.Height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", int(state.Width)))
	}
	set := func(p Point, c byte) {
		if state.InBounds(p) {
			grid[p.Y][p.X] = c
		}
	}

	for _, h := range state.Hazards {
		set(h, 'x')
	}
	for _, f := range state.Food {
		set(f, 'F')
	}
	// Paint tails first so a stacked head stays visible.
	for _, s := range state.Snakes {
		body, head := byte('s'), byte('S')
		if s.Id == state.YouId {
			body, head = 'o', 'O'
		}
		for i := len(s.Body) - 1; i >= 0; i-- {
			if i == 0 {
				set(s.Body[i], head)
			} else {
				set(s.Body[i], body)
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "turn %d you=%s\n", state.Turn, state.YouId)
	for y := int(state.Height) - 1; y >= 0; y-- {
		for x, c := range grid[y] {
			if x > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(c)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
