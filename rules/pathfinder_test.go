package rules

import (
	"testing"

	"github.com/brensch/hunter/game"
)

func TestNeighbors_Order(t *testing.T) {
	got := Pathfinder{}.Neighbors(game.Point{X: 3, Y: 3})
	want := [4]game.Point{{X: 3, Y: 4}, {X: 4, Y: 3}, {X: 3, Y: 2}, {X: 2, Y: 3}}
	if got != want {
		t.Fatalf("neighbors=%v want=%v", got, want)
	}
}

func TestIsAcceptable(t *testing.T) {
	state := &game.GameState{
		Width:  7,
		Height: 7,
		YouId:  "me",
		Snakes: []game.Snake{
			{Id: "me", Health: 90, Body: []game.Point{{X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}},
			{Id: "fed", Health: 100, Body: []game.Point{{X: 5, Y: 5}, {X: 5, Y: 4}, {X: 5, Y: 3}, {X: 5, Y: 3}}},
		},
	}
	t.Logf("\n%s", dumpState(state))

	cases := []struct {
		name string
		p    game.Point
		want bool
	}{
		{"empty", game.Point{X: 3, Y: 3}, true},
		{"off board", game.Point{X: -1, Y: 1}, false},
		{"off board top", game.Point{X: 1, Y: 7}, false},
		{"own neck", game.Point{X: 1, Y: 0}, false},
		{"own tail vacates", game.Point{X: 0, Y: 0}, true},
		{"other body", game.Point{X: 5, Y: 4}, false},
		{"stacked tail stays", game.Point{X: 5, Y: 3}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := (Pathfinder{}).IsAcceptable(state, tc.p); got != tc.want {
				t.Fatalf("IsAcceptable(%v)=%v want=%v", tc.p, got, tc.want)
			}
		})
	}
}

func TestIsSafe_HeadToHead(t *testing.T) {
	state := &game.GameState{
		Width:  11,
		Height: 11,
		YouId:  "me",
		Snakes: []game.Snake{
			{Id: "me", Health: 90, Body: []game.Point{{X: 3, Y: 5}, {X: 2, Y: 5}, {X: 1, Y: 5}}},
			{Id: "big", Health: 90, Body: []game.Point{{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 7, Y: 5}, {X: 8, Y: 5}}},
			{Id: "small", Health: 90, Body: []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}}},
		},
	}
	t.Logf("\n%s", dumpState(state))
	pf := Pathfinder{}

	// (4,5) touches the head of a longer snake.
	if pf.IsSafe(state, game.Point{X: 4, Y: 5}) {
		t.Fatalf("cell next to longer head should be unsafe")
	}
	if !pf.IsAcceptable(state, game.Point{X: 4, Y: 5}) {
		t.Fatalf("cell next to longer head should still be acceptable")
	}
	// (3,4) touches the head of a shorter snake: we win that collision.
	if !pf.IsSafe(state, game.Point{X: 3, Y: 4}) {
		t.Fatalf("cell next to shorter head should be safe")
	}
	if !pf.IsSafe(state, game.Point{X: 3, Y: 6}) {
		t.Fatalf("open cell should be safe")
	}
}

func TestIsSafe_TailNextToFood(t *testing.T) {
	state := &game.GameState{
		Width:  7,
		Height: 7,
		YouId:  "me",
		Snakes: []game.Snake{
			{Id: "me", Health: 90, Body: []game.Point{{X: 0, Y: 3}, {X: 0, Y: 2}, {X: 0, Y: 1}, {X: 0, Y: 0}}},
			{Id: "other", Health: 90, Body: []game.Point{{X: 3, Y: 3}, {X: 2, Y: 3}, {X: 1, Y: 3}}},
		},
		Food: []game.Point{{X: 4, Y: 3}},
	}
	pf := Pathfinder{}
	tail := game.Point{X: 1, Y: 3}
	if !pf.IsAcceptable(state, tail) {
		t.Fatalf("moving tail should be acceptable")
	}
	if pf.IsSafe(state, tail) {
		t.Fatalf("tail of a snake about to eat should be unsafe")
	}
}

func TestShortestPath(t *testing.T) {
	state := &game.GameState{
		Width:  5,
		Height: 5,
		YouId:  "me",
		Snakes: []game.Snake{
			{Id: "me", Health: 90, Body: []game.Point{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: 0}}},
			// A wall at x=2 from y=0..3 forces a detour over the top.
			{Id: "wall", Health: 90, Body: []game.Point{{X: 2, Y: 3}, {X: 2, Y: 2}, {X: 2, Y: 1}, {X: 2, Y: 0}, {X: 2, Y: 0}}},
		},
	}
	t.Logf("\n%s", dumpState(state))
	pf := Pathfinder{}

	path, ok := pf.ShortestPath(state, game.Point{X: 0, Y: 0}, game.Point{X: 1, Y: 0})
	if !ok || len(path) != 1 || path[0] != (game.Point{X: 1, Y: 0}) {
		t.Fatalf("adjacent path=%v ok=%v", path, ok)
	}

	path, ok = pf.ShortestPath(state, game.Point{X: 0, Y: 0}, game.Point{X: 3, Y: 0})
	if !ok {
		t.Fatalf("expected detour path")
	}
	// 4 up to y=4, 3 right to x=3, 4 down to y=0.
	if len(path) != 11 {
		t.Fatalf("path len=%d want=11 path=%v", len(path), path)
	}
	if path[len(path)-1] != (game.Point{X: 3, Y: 0}) {
		t.Fatalf("path must end at target, got %v", path[len(path)-1])
	}
	prev := game.Point{X: 0, Y: 0}
	for _, p := range path {
		dx, dy := p.X-prev.X, p.Y-prev.Y
		if dx*dx+dy*dy != 1 {
			t.Fatalf("non-adjacent step %v -> %v", prev, p)
		}
		if !pf.IsAcceptable(state, p) {
			t.Fatalf("path crosses blocked cell %v", p)
		}
		prev = p
	}

	if path, ok := pf.ShortestPath(state, game.Point{X: 0, Y: 0}, game.Point{X: 0, Y: 0}); !ok || len(path) != 0 {
		t.Fatalf("self path=%v ok=%v want empty", path, ok)
	}
}

func TestShortestPath_Unreachable(t *testing.T) {
	state := &game.GameState{
		Width:  3,
		Height: 3,
		YouId:  "me",
		Snakes: []game.Snake{
			{Id: "me", Health: 90, Body: []game.Point{{X: 0, Y: 0}, {X: 0, Y: 0}}},
			{Id: "box", Health: 90, Body: []game.Point{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 1, Y: 0}}},
		},
	}
	if path, ok := (Pathfinder{}).ShortestPath(state, game.Point{X: 0, Y: 0}, game.Point{X: 2, Y: 2}); ok {
		t.Fatalf("expected unreachable, got %v", path)
	}
}
