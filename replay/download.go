// Package replay fetches finished games from the Battlesnake engine and
// runs the hunter policy over them turn by turn.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Config holds downloader configuration
type Config struct {
	EngineURL      string // WebSocket URL template, %s is the game id
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		EngineURL:      "wss://engine.battlesnake.com/games/%s/events",
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
	}
}

// GameEvent represents an event from the WebSocket stream
type GameEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// GameInfo from the "game_info" event
type GameInfo struct {
	Game    GameDetails `json:"game"`
	Ruleset RulesetInfo `json:"ruleset"`
}

type GameDetails struct {
	ID      string `json:"id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Timeout int    `json:"timeout"`
}

type RulesetInfo struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Settings json.RawMessage `json:"settings"`
}

// Frame is one "frame" event: the board after a turn resolved.
type Frame struct {
	Turn    int         `json:"turn"`
	Snakes  []SnakeData `json:"snakes"`
	Food    []Coord     `json:"food"`
	Hazards []Coord     `json:"hazards"`
}

type SnakeData struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Health int     `json:"health"`
	Body   []Coord `json:"body"`
	Squad  string  `json:"squad,omitempty"`
	Author string  `json:"author,omitempty"`
	Death  *Death  `json:"death,omitempty"`
}

func (s *SnakeData) Alive() bool {
	return s.Death == nil && s.Health > 0 && len(s.Body) > 0
}

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Death struct {
	Cause string `json:"cause"`
	Turn  int    `json:"turn"`
}

// Game is a downloaded game: its info event and every frame in turn order.
type Game struct {
	ID     string
	Info   GameInfo
	Frames []Frame
}

// Width falls back to the standard board when game_info omitted it.
func (g *Game) Width() int {
	if g.Info.Game.Width > 0 {
		return g.Info.Game.Width
	}
	return 11
}

func (g *Game) Height() int {
	if g.Info.Game.Height > 0 {
		return g.Info.Game.Height
	}
	return 11
}

// Download connects to the game WebSocket and reads frames until the
// engine reports game_end or closes the stream.
func Download(ctx context.Context, cfg Config, gameID string) (*Game, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("game_id", gameID)
	url := fmt.Sprintf(cfg.EngineURL, gameID)

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.ConnectTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	g := &Game{ID: gameID}

read:
	for {
		if cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Connection closed normally
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}
			// Timeout or unexpected close: keep what we have
			if len(g.Frames) > 0 {
				logger.Warn("stream ended early", "frames", len(g.Frames), "err", err)
				break
			}
			return nil, fmt.Errorf("read error: %w", err)
		}

		var event GameEvent
		if err := json.Unmarshal(message, &event); err != nil {
			logger.Warn("failed to parse event", "err", err)
			continue
		}

		switch event.Type {
		case "game_info":
			if err := json.Unmarshal(event.Data, &g.Info); err != nil {
				logger.Warn("failed to parse game_info", "err", err)
			}

		case "frame":
			var frame Frame
			if err := json.Unmarshal(event.Data, &frame); err != nil {
				logger.Warn("failed to parse frame", "err", err)
				continue
			}
			g.Frames = append(g.Frames, frame)

		case "game_end":
			break read
		}
	}

	if len(g.Frames) == 0 {
		return nil, fmt.Errorf("game %s: no frames", gameID)
	}
	logger.Debug("downloaded game", "frames", len(g.Frames), "ruleset", g.Info.Ruleset.Name, "winner", Winner(&g.Frames[len(g.Frames)-1]))
	return g, nil
}

// Winner names the only snake alive in frame, or "draw".
func Winner(frame *Frame) string {
	if frame == nil {
		return "unknown"
	}

	var alive []SnakeData
	for _, snake := range frame.Snakes {
		if snake.Alive() {
			alive = append(alive, snake)
		}
	}

	if len(alive) == 1 {
		return alive[0].Name
	}
	return "draw"
}
