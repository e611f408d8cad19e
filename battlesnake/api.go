package main

import (
	"errors"
	"fmt"

	"github.com/brensch/hunter/game"
)

// Battlesnake API request/response types

type BattlesnakeInfoResponse struct {
	APIVersion string `json:"apiversion"`
	Author     string `json:"author"`
	Color      string `json:"color"`
	Head       string `json:"head"`
	Tail       string `json:"tail"`
	Version    string `json:"version"`
}

type GameRequest struct {
	Game  Game        `json:"game"`
	Turn  int         `json:"turn"`
	Board Board       `json:"board"`
	You   Battlesnake `json:"you"`
}

type Game struct {
	ID      string  `json:"id"`
	Ruleset Ruleset `json:"ruleset"`
	Map     string  `json:"map"`
	Timeout int     `json:"timeout"`
	Source  string  `json:"source"`
}

type Ruleset struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Board struct {
	Height  int           `json:"height"`
	Width   int           `json:"width"`
	Food    []Coord       `json:"food"`
	Hazards []Coord       `json:"hazards"`
	Snakes  []Battlesnake `json:"snakes"`
}

type Battlesnake struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Health  int     `json:"health"`
	Body    []Coord `json:"body"`
	Latency string  `json:"latency"`
	Head    Coord   `json:"head"`
	Length  int     `json:"length"`
	Shout   string  `json:"shout"`
	Squad   string  `json:"squad"`
}

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// StartResponse carries the cosmetic fields older engines read from /start.
type StartResponse struct {
	Color    string `json:"color,omitempty"`
	HeadType string `json:"headType,omitempty"`
	TailType string `json:"tailType,omitempty"`
}

type MoveResponse struct {
	Move  string `json:"move"`
	Shout string `json:"shout,omitempty"`
}

var errBadRequest = errors.New("bad request")

// validate rejects requests the policy cannot work with. Everything past
// this point may assume non-empty ids and bodies.
func (req *GameRequest) validate() error {
	switch {
	case req.Game.ID == "":
		return fmt.Errorf("%w: missing game.id", errBadRequest)
	case req.You.ID == "":
		return fmt.Errorf("%w: missing you.id", errBadRequest)
	case len(req.You.Body) == 0:
		return fmt.Errorf("%w: you.body is empty", errBadRequest)
	case req.Board.Width <= 0 || req.Board.Height <= 0:
		return fmt.Errorf("%w: invalid board size %dx%d", errBadRequest, req.Board.Width, req.Board.Height)
	}
	for _, s := range req.Board.Snakes {
		if s.ID == "" || len(s.Body) == 0 {
			return fmt.Errorf("%w: snake %q has no id or body", errBadRequest, s.ID)
		}
	}
	return nil
}

// convertToGameState converts a Battlesnake API request to our game state.
// The board's snake order is kept; you are appended if the engine left
// you out of board.snakes.
func convertToGameState(req *GameRequest) *game.GameState {
	state := &game.GameState{
		Id:     req.Game.ID,
		Width:  int32(req.Board.Width),
		Height: int32(req.Board.Height),
		YouId:  req.You.ID,
		Turn:   int32(req.Turn),
	}

	state.Food = toPoints(req.Board.Food)
	state.Hazards = toPoints(req.Board.Hazards)

	state.Snakes = make([]game.Snake, 0, len(req.Board.Snakes)+1)
	sawYou := false
	for _, s := range req.Board.Snakes {
		sawYou = sawYou || s.ID == req.You.ID
		state.Snakes = append(state.Snakes, toSnake(s))
	}
	if !sawYou {
		state.Snakes = append(state.Snakes, toSnake(req.You))
	}

	return state
}

func toSnake(s Battlesnake) game.Snake {
	return game.Snake{
		Id:     s.ID,
		Health: int32(s.Health),
		Body:   toPoints(s.Body),
		Squad:  s.Squad,
	}
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
