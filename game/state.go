// Package game defines the board model shared by the hunter policy, the
// HTTP transport and the offline tools.
//
// A GameState is one immutable snapshot of a match as delivered for a single
// turn. Nothing in the decision path mutates it; the arena clones before
// advancing.
package game

// Point is a board coordinate.
// Coordinates follow Battlesnake conventions: (0,0) is bottom-left.
type Point struct {
	X int32
	Y int32
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

type Snake struct {
	Id     string
	Health int32
	Body   []Point
	Squad  string
}

// Head returns the first body segment. Snakes reaching the policy always
// have a non-empty body; the transport rejects anything else.
func (s *Snake) Head() Point {
	return s.Body[0]
}

func (s *Snake) Length() int {
	return len(s.Body)
}

// GameState is the board snapshot for one turn of one match.
// Snakes holds every live snake in board order, including YouId.
type GameState struct {
	Id      string
	Width   int32
	Height  int32
	Turn    int32
	YouId   string
	Snakes  []Snake
	Food    []Point
	Hazards []Point
}

// You returns the controlled snake, or nil if it is not on the board.
func (s *GameState) You() *Snake {
	for i := range s.Snakes {
		if s.Snakes[i].Id == s.YouId {
			return &s.Snakes[i]
		}
	}
	return nil
}

// Others returns every snake except YouId, preserving board order.
func (s *GameState) Others() []Snake {
	out := make([]Snake, 0, len(s.Snakes))
	for _, sn := range s.Snakes {
		if sn.Id == s.YouId {
			continue
		}
		out = append(out, sn)
	}
	return out
}

// InBounds reports whether p lies on the board.
func (s *GameState) InBounds(p Point) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := &GameState{
		Id:     s.Id,
		Width:  s.Width,
		Height: s.Height,
		YouId:  s.YouId,
		Turn:   s.Turn,
	}

	if len(s.Food) > 0 {
		out.Food = make([]Point, len(s.Food))
		copy(out.Food, s.Food)
	}
	if len(s.Hazards) > 0 {
		out.Hazards = make([]Point, len(s.Hazards))
		copy(out.Hazards, s.Hazards)
	}

	if len(s.Snakes) > 0 {
		out.Snakes = make([]Snake, len(s.Snakes))
		for i := range s.Snakes {
			out.Snakes[i] = Snake{Id: s.Snakes[i].Id, Health: s.Snakes[i].Health, Squad: s.Snakes[i].Squad}
			if len(s.Snakes[i].Body) > 0 {
				out.Snakes[i].Body = make([]Point, len(s.Snakes[i].Body))
				copy(out.Snakes[i].Body, s.Snakes[i].Body)
			}
		}
	}

	return out
}

// WithPerspective returns a shallow copy of s whose YouId is id.
// Slices are shared, so the result must be treated as read-only.
func (s *GameState) WithPerspective(id string) *GameState {
	out := *s
	out.YouId = id
	return &out
}
