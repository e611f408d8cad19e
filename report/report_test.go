package report

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/brensch/hunter/store"
)

func row(game string, turn int32, tier, move, played string, pathLen int32) store.DecisionRow {
	return store.DecisionRow{
		GameID:  game,
		Turn:    turn,
		SnakeID: "me",
		Width:   11,
		Height:  11,
		Move:    move,
		Tier:    tier,
		PathLen: pathLen,
		Played:  played,
		Source:  store.SourceReplay,
	}
}

func TestSummarize(t *testing.T) {
	root := t.TempDir()
	if _, err := store.WriteDecisionsAtomic(root, []store.DecisionRow{
		row("g1", 0, "chase", "right", "right", 4),
		row("g1", 1, "chase", "right", "up", 2),
		row("g1", 2, "safe", "up", "", 0),
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	nested := filepath.Join(root, "arena")
	arenaRow := row("g2", 0, "default", "up", "up", 0)
	arenaRow.Source = store.SourceArena
	if _, err := store.WriteDecisionsAtomic(nested, []store.DecisionRow{arenaRow}); err != nil {
		t.Fatalf("write nested: %v", err)
	}
	// Anything under tmp/ is a partial batch and must be ignored.
	if _, err := store.WriteDecisionsAtomic(filepath.Join(root, "tmp"), []store.DecisionRow{row("partial", 0, "chase", "left", "", 9)}); err != nil {
		t.Fatalf("write tmp: %v", err)
	}

	s, err := Summarize(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	t.Logf("summary: %+v", s)

	if s.Rows != 4 || s.Games != 2 {
		t.Fatalf("rows=%d games=%d want 4/2", s.Rows, s.Games)
	}
	if s.Tiers["chase"] != 2 || s.Tiers["safe"] != 1 || s.Tiers["default"] != 1 {
		t.Fatalf("tiers=%v", s.Tiers)
	}
	if s.Moves["right"] != 2 || s.Moves["up"] != 2 || s.Moves["left"] != 0 {
		t.Fatalf("moves=%v", s.Moves)
	}
	if s.Sources[store.SourceArena] != 1 || s.Sources[store.SourceReplay] != 3 {
		t.Fatalf("sources=%v", s.Sources)
	}
	if s.MeanChasePathLen != 3 {
		t.Fatalf("mean chase path=%v want 3", s.MeanChasePathLen)
	}
	if s.Compared != 3 || s.Agreed != 2 {
		t.Fatalf("compared=%d agreed=%d want 3/2", s.Compared, s.Agreed)
	}
}

func TestSummarize_EmptyRoots(t *testing.T) {
	for _, roots := range [][]string{nil, {t.TempDir()}, {filepath.Join(t.TempDir(), "missing")}} {
		s, err := Summarize(context.Background(), roots)
		if err != nil {
			t.Fatalf("Summarize(%v): %v", roots, err)
		}
		if s.Rows != 0 || s.Games != 0 || s.AgreementRate() != 0 {
			t.Fatalf("summary=%+v want empty", s)
		}
	}
}
