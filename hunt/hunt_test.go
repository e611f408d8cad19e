package hunt

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/brensch/hunter/game"
	"github.com/brensch/hunter/rules"
)

// fakePathfinder answers from fixed tables so policy tests can pin every
// classification. Cells missing from acceptable/safe use the defaults.
type fakePathfinder struct {
	acceptable    map[game.Point]bool
	safe          map[game.Point]bool
	defaultAccept bool
	defaultSafe   bool
	paths         map[game.Point][]game.Point
}

func (f *fakePathfinder) Neighbors(p game.Point) [4]game.Point {
	return rules.Pathfinder{}.Neighbors(p)
}

func (f *fakePathfinder) IsAcceptable(_ *game.GameState, p game.Point) bool {
	if v, ok := f.acceptable[p]; ok {
		return v
	}
	return f.defaultAccept
}

func (f *fakePathfinder) IsSafe(_ *game.GameState, p game.Point) bool {
	if v, ok := f.safe[p]; ok {
		return v
	}
	return f.defaultSafe
}

func (f *fakePathfinder) ShortestPath(_ *game.GameState, _, to game.Point) ([]game.Point, bool) {
	p, ok := f.paths[to]
	return p, ok
}

// fixedRand always returns the same index, clamped to n.
type fixedRand int

func (r fixedRand) Intn(n int) int {
	return min(int(r), n-1)
}

func snake(id string, body ...game.Point) game.Snake {
	return game.Snake{Id: id, Health: 100, Body: body}
}

func pt(x, y int32) game.Point { return game.Point{X: x, Y: y} }

func TestSelectTarget_FirstNonOwnInBoardOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register("g1", "me")
	reg.Register("g1", "mate")

	state := &game.GameState{
		Id:    "g1",
		YouId: "me",
		Snakes: []game.Snake{
			snake("mate", pt(1, 0)),
			snake("me", pt(0, 0)),
			snake("far", pt(10, 10)),
			snake("near", pt(0, 1)),
		},
	}

	got := SelectTarget(state, reg)
	if got == nil || got.Id != "far" {
		t.Fatalf("target=%v want far", got)
	}

	reg.Register("g1", "far")
	got = SelectTarget(state, reg)
	if got == nil || got.Id != "near" {
		t.Fatalf("target=%v want near", got)
	}

	reg.Register("g1", "near")
	if got := SelectTarget(state, reg); got != nil {
		t.Fatalf("target=%v want none", got.Id)
	}
}

func TestSelectTarget_OtherMatchDoesNotCount(t *testing.T) {
	reg := NewRegistry()
	reg.Register("other-game", "enemy")

	state := &game.GameState{Id: "g1", YouId: "me", Snakes: []game.Snake{snake("me", pt(0, 0)), snake("enemy", pt(3, 3))}}
	if got := SelectTarget(state, reg); got == nil || got.Id != "enemy" {
		t.Fatalf("target=%v want enemy", got)
	}
	if got := SelectTarget(&game.GameState{Id: "g1", YouId: "me"}, reg); got != nil {
		t.Fatalf("empty board target=%v", got)
	}
	if got := SelectTarget(state, nil); got == nil || got.Id != "enemy" {
		t.Fatalf("nil lookup target=%v want enemy", got)
	}
}

func TestToDirection(t *testing.T) {
	head := pt(5, 5)
	cases := []struct {
		dest game.Point
		want game.Direction
	}{
		{pt(5, 6), game.Up},
		{pt(6, 5), game.Right},
		{pt(5, 4), game.Down},
		{pt(4, 5), game.Left},
		{pt(9, 9), game.Up},
	}
	for _, tc := range cases {
		if got := ToDirection(rules.Pathfinder{}, head, tc.dest); got != tc.want {
			t.Errorf("ToDirection(%v)=%s want=%s", tc.dest, got, tc.want)
		}
	}
}

func TestDecide_ChaseScenario(t *testing.T) {
	// Own head (0,0), enemy head (2,0), everything acceptable and safe,
	// the path to (1,0) has length 2.
	state := &game.GameState{
		Id:     "g1",
		YouId:  "me",
		Snakes: []game.Snake{snake("me", pt(0, 0)), snake("enemy", pt(2, 0))},
	}
	pf := &fakePathfinder{
		defaultAccept: true,
		defaultSafe:   true,
		paths: map[game.Point][]game.Point{
			pt(1, 0): {pt(1, 0), pt(1, 0)},
		},
	}
	sel := NewSelector(NewRegistry(), pf)

	d := sel.Decide(state)
	if d.Move != game.Right || d.Tier != TierChase || d.TargetID != "enemy" || d.PathLen != 2 {
		t.Fatalf("decision=%+v want right/chase/enemy/2", d)
	}
	if got := sel.SelectMove(state); got != game.Right {
		t.Fatalf("SelectMove=%s want right", got)
	}
}

func TestDecide_ChaseTieGoesToFirstNeighbor(t *testing.T) {
	// Target at (5,5). Its up neighbor (5,6) and left neighbor (4,5) are both
	// three steps away; up is enumerated first and must win.
	state := &game.GameState{
		Id:     "g1",
		YouId:  "me",
		Snakes: []game.Snake{snake("me", pt(3, 4)), snake("enemy", pt(5, 5))},
	}
	pf := &fakePathfinder{
		defaultAccept: true,
		defaultSafe:   true,
		paths: map[game.Point][]game.Point{
			pt(5, 6): {pt(3, 5), pt(4, 5), pt(5, 6)},
			pt(4, 5): {pt(4, 4), pt(4, 5), pt(4, 5)},
			pt(5, 4): {pt(4, 4), pt(5, 4), pt(5, 4), pt(5, 4)},
		},
	}

	d := NewSelector(nil, pf).Decide(state)
	if d.Move != game.Up || d.PathLen != 3 {
		t.Fatalf("decision=%+v want up via (5,6)", d)
	}

	// A strictly shorter later candidate replaces the earlier one.
	pf.paths[pt(5, 4)] = []game.Point{pt(4, 4), pt(5, 4)}
	d = NewSelector(nil, pf).Decide(state)
	if d.Move != game.Right || d.PathLen != 2 {
		t.Fatalf("decision=%+v want right via (4,4)", d)
	}
}

func TestDecide_ChaseSkipsUnacceptableAndEmptyPaths(t *testing.T) {
	state := &game.GameState{
		Id:     "g1",
		YouId:  "me",
		Snakes: []game.Snake{snake("me", pt(0, 0)), snake("enemy", pt(2, 2))},
	}
	pf := &fakePathfinder{
		defaultAccept: true,
		defaultSafe:   true,
		acceptable:    map[game.Point]bool{pt(2, 3): false},
		paths: map[game.Point][]game.Point{
			pt(2, 3): {pt(0, 1)},
			pt(3, 2): {},
			pt(1, 2): {pt(1, 0), pt(1, 1), pt(1, 2)},
		},
	}
	d := NewSelector(nil, pf).Decide(state)
	if d.Tier != TierChase || d.Move != game.Right || d.PathLen != 3 {
		t.Fatalf("decision=%+v want chase right len 3", d)
	}
}

func TestDecide_NoEnemyFallsBackToSafe(t *testing.T) {
	reg := NewRegistry()
	reg.Register("g1", "me")
	reg.Register("g1", "mate")
	state := &game.GameState{
		Id:     "g1",
		YouId:  "me",
		Snakes: []game.Snake{snake("me", pt(5, 5)), snake("mate", pt(7, 7))},
	}
	pf := &fakePathfinder{
		defaultAccept: true,
		safe:          map[game.Point]bool{pt(6, 5): true, pt(4, 5): true},
		paths: map[game.Point][]game.Point{
			pt(7, 6): {pt(6, 5), pt(7, 5), pt(7, 6)},
		},
	}

	for seed := int64(0); seed < 20; seed++ {
		sel := NewSelector(reg, pf)
		sel.Rand = rand.New(rand.NewSource(seed))
		d := sel.Decide(state)
		if d.Tier != TierSafe || d.Options != 2 {
			t.Fatalf("decision=%+v want safe with 2 options", d)
		}
		if d.Move != game.Right && d.Move != game.Left {
			t.Fatalf("seed %d: move=%s is not a safe neighbor", seed, d.Move)
		}
	}

	sel := NewSelector(reg, pf)
	sel.Rand = fixedRand(1)
	if got := sel.SelectMove(state); got != game.Left {
		t.Fatalf("pinned rand move=%s want left", got)
	}
}

func TestDecide_UnreachableEnemyFallsBackToSafe(t *testing.T) {
	state := &game.GameState{
		Id:     "g1",
		YouId:  "me",
		Snakes: []game.Snake{snake("me", pt(0, 0)), snake("enemy", pt(8, 8))},
	}
	pf := &fakePathfinder{defaultAccept: true, safe: map[game.Point]bool{pt(0, 1): true}}
	d := NewSelector(nil, pf).Decide(state)
	if d.Tier != TierSafe || d.Move != game.Up {
		t.Fatalf("decision=%+v want safe up", d)
	}
}

func TestDecide_AcceptableScenario(t *testing.T) {
	// All others are own, no neighbor is safe, only north is acceptable.
	reg := NewRegistry()
	reg.Register("g1", "me")
	reg.Register("g1", "mate")
	state := &game.GameState{
		Id:     "g1",
		YouId:  "me",
		Snakes: []game.Snake{snake("me", pt(3, 3)), snake("mate", pt(0, 0))},
	}
	pf := &fakePathfinder{acceptable: map[game.Point]bool{pt(3, 4): true}}

	d := NewSelector(reg, pf).Decide(state)
	if d.Tier != TierAcceptable || d.Move != game.Up || d.Options != 1 {
		t.Fatalf("decision=%+v want acceptable up", d)
	}

	pf.acceptable[pt(2, 3)] = true
	sel := NewSelector(reg, pf)
	sel.Rand = fixedRand(1)
	if d := sel.Decide(state); d.Move != game.Left || d.Options != 2 {
		t.Fatalf("decision=%+v want left among 2", d)
	}
}

func TestDecide_ForcedDefault(t *testing.T) {
	state := &game.GameState{
		Id:     "g1",
		YouId:  "me",
		Snakes: []game.Snake{snake("me", pt(3, 3)), snake("enemy", pt(5, 5))},
	}
	d := NewSelector(nil, &fakePathfinder{}).Decide(state)
	if d.Tier != TierDefault || d.Move != DefaultMove {
		t.Fatalf("decision=%+v want default", d)
	}

	// Missing controlled snake still yields a move.
	if got := NewSelector(nil, &fakePathfinder{}).SelectMove(&game.GameState{YouId: "ghost"}); got != DefaultMove {
		t.Fatalf("move=%s want default", got)
	}
}

func TestDecide_RealPathfinderChasesAroundBody(t *testing.T) {
	// Own head (0,0) on an open 11x11 board; enemy at (2,0). The closest
	// cell next to the enemy is (1,0), one step right.
	state := &game.GameState{
		Id:     "g1",
		Width:  11,
		Height: 11,
		YouId:  "me",
		Snakes: []game.Snake{
			snake("me", pt(0, 0), pt(0, 1), pt(0, 2)),
			snake("enemy", pt(2, 0), pt(3, 0), pt(4, 0)),
		},
	}
	d := NewSelector(NewRegistry(), rules.Pathfinder{}).Decide(state)
	if d.Tier != TierChase || d.Move != game.Right || d.PathLen != 1 {
		t.Fatalf("decision=%+v want chase right", d)
	}
}

func TestRegistry_MonotonicAndIdempotent(t *testing.T) {
	reg := NewRegistry()
	if reg.IsOwn("g1", "a") {
		t.Fatalf("unregistered agent reported own")
	}
	reg.Register("g1", "a")
	reg.Register("g1", "a")
	reg.Register("g1", "b")
	for i := 0; i < 3; i++ {
		if !reg.IsOwn("g1", "a") || !reg.IsOwn("g1", "b") {
			t.Fatalf("registered agents must stay own")
		}
	}
	if reg.IsOwn("g2", "a") {
		t.Fatalf("own set leaked across matches")
	}
	if reg.Len() != 1 {
		t.Fatalf("len=%d want=1", reg.Len())
	}
}

func TestRegistry_ForgetAndSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := NewRegistry()
	reg.now = func() time.Time { return now }

	reg.Register("old", "a")
	now = now.Add(30 * time.Minute)
	reg.Register("new", "b")
	reg.Register("gone", "c")

	reg.Forget("gone")
	if reg.IsOwn("gone", "c") {
		t.Fatalf("forgotten match still reports own")
	}
	reg.Forget("never-seen")

	now = now.Add(45 * time.Minute)
	if n := reg.Sweep(time.Hour); n != 1 {
		t.Fatalf("swept=%d want=1", n)
	}
	if reg.IsOwn("old", "a") {
		t.Fatalf("stale match survived sweep")
	}
	if !reg.IsOwn("new", "b") {
		t.Fatalf("fresh match was swept")
	}
	if reg.Len() != 1 {
		t.Fatalf("len=%d want=1", reg.Len())
	}
}

func TestRegistry_ActiveMatchSurvivesSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := NewRegistry()
	reg.now = func() time.Time { return now }

	reg.Register("registering", "mate")
	reg.Register("moving", "mate")
	reg.Register("idle", "mate")

	// An hour and a minute of play: one match re-registers, one only moves.
	for i := 0; i < 61; i++ {
		now = now.Add(time.Minute)
		reg.Register("registering", "mate")
		reg.Touch("moving")
	}
	reg.Touch("untracked")

	if n := reg.Sweep(time.Hour); n != 1 {
		t.Fatalf("swept=%d want=1", n)
	}
	if !reg.IsOwn("registering", "mate") || !reg.IsOwn("moving", "mate") {
		t.Fatalf("active match evicted by Sweep")
	}
	if reg.IsOwn("idle", "mate") {
		t.Fatalf("idle match survived sweep")
	}
	if reg.Len() != 2 {
		t.Fatalf("len=%d want=2", reg.Len())
	}
}

func TestRegistry_ConcurrentRegisterAndRead(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for m := 0; m < 8; m++ {
		wg.Add(2)
		matchID := fmt.Sprintf("g%d", m)
		go func() {
			defer wg.Done()
			for a := 0; a < 50; a++ {
				reg.Register(matchID, fmt.Sprintf("s%d", a))
			}
		}()
		go func() {
			defer wg.Done()
			seen := false
			for a := 0; a < 500; a++ {
				own := reg.IsOwn(matchID, "s0")
				if seen && !own {
					t.Errorf("IsOwn went from true to false for %s", matchID)
					return
				}
				seen = seen || own
			}
		}()
	}
	wg.Wait()

	for m := 0; m < 8; m++ {
		for a := 0; a < 50; a++ {
			if !reg.IsOwn(fmt.Sprintf("g%d", m), fmt.Sprintf("s%d", a)) {
				t.Fatalf("missing g%d/s%d", m, a)
			}
		}
	}
}
