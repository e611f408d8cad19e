package replay

import (
	"time"

	"github.com/brensch/hunter/game"
	"github.com/brensch/hunter/hunt"
	"github.com/brensch/hunter/store"
)

// Agreement counts how often the policy picked the move that was played.
type Agreement struct {
	Compared int
	Agreed   int
}

func (a Agreement) Rate() float64 {
	if a.Compared == 0 {
		return 0
	}
	return float64(a.Agreed) / float64(a.Compared)
}

// StateAt converts frame i into a game state seen by snakeID. Dead snakes
// are left out.
func (g *Game) StateAt(i int, snakeID string) *game.GameState {
	f := &g.Frames[i]
	state := &game.GameState{
		Id:      g.ID,
		Width:   int32(g.Width()),
		Height:  int32(g.Height()),
		Turn:    int32(f.Turn),
		YouId:   snakeID,
		Food:    toPoints(f.Food),
		Hazards: toPoints(f.Hazards),
	}
	for _, s := range f.Snakes {
		if !s.Alive() {
			continue
		}
		state.Snakes = append(state.Snakes, game.Snake{
			Id:     s.ID,
			Health: int32(s.Health),
			Body:   toPoints(s.Body),
			Squad:  s.Squad,
		})
	}
	return state
}

// RegisterSquad marks snakeID and every snake sharing its squad as own for
// this game.
func RegisterSquad(reg hunt.OwnRegistry, g *Game, snakeID string) {
	reg.Register(g.ID, snakeID)
	if len(g.Frames) == 0 {
		return
	}
	squad := ""
	for _, s := range g.Frames[0].Snakes {
		if s.ID == snakeID {
			squad = s.Squad
		}
	}
	if squad == "" {
		return
	}
	for _, s := range g.Frames[0].Snakes {
		if s.Squad == squad {
			reg.Register(g.ID, s.ID)
		}
	}
}

// Redecide runs sel on every frame in which snakeID is alive and compares
// its choice with the move actually played, read off the next frame.
func Redecide(g *Game, snakeID string, sel *hunt.Selector) ([]store.DecisionRow, Agreement) {
	var rows []store.DecisionRow
	var agg Agreement

	for i := range g.Frames {
		state := g.StateAt(i, snakeID)
		you := state.You()
		if you == nil {
			continue
		}

		d := sel.Decide(state)
		played := ""
		if i+1 < len(g.Frames) {
			if dir, ok := playedMove(you.Head(), &g.Frames[i+1], snakeID); ok {
				played = dir.String()
				agg.Compared++
				if dir == d.Move {
					agg.Agreed++
				}
			}
		}

		rows = append(rows, store.DecisionRow{
			GameID:       g.ID,
			Turn:         state.Turn,
			SnakeID:      snakeID,
			Width:        state.Width,
			Height:       state.Height,
			Move:         d.Move.String(),
			Tier:         d.Tier.String(),
			TargetID:     d.TargetID,
			PathLen:      int32(d.PathLen),
			Options:      int32(d.Options),
			Played:       played,
			Source:       store.SourceReplay,
			RecordedAtNs: time.Now().UnixNano(),
		})
	}
	return rows, agg
}

// playedMove finds the step from head to snakeID's head in next. Snakes
// eliminated on that turn still carry their final body.
func playedMove(head game.Point, next *Frame, snakeID string) (game.Direction, bool) {
	for _, s := range next.Snakes {
		if s.ID != snakeID || len(s.Body) == 0 {
			continue
		}
		to := game.Point{X: int32(s.Body[0].X), Y: int32(s.Body[0].Y)}
		for _, d := range game.Directions {
			if head.Add(d.Delta()) == to {
				return d, true
			}
		}
	}
	return 0, false
}

func toPoints(cs []Coord) []game.Point {
	if len(cs) == 0 {
		return nil
	}
	out := make([]game.Point, len(cs))
	for i, c := range cs {
		out[i] = game.Point{X: int32(c.X), Y: int32(c.Y)}
	}
	return out
}
