package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/brensch/hunter/hunt"
	"github.com/brensch/hunter/store"
)

// Appearance is returned from / and /start; it has no effect on play.
type Appearance struct {
	Author string
	Color  string
	Heads  []string
	Tails  []string
}

type decisionRecorder interface {
	Record(row store.DecisionRow) bool
}

// teamSharer publishes own snakes to, and pulls them from, other instances.
type teamSharer interface {
	Register(ctx context.Context, matchID, agentID string) error
	Sync(ctx context.Context, matchID string) (int, error)
	Forget(matchID string)
}

const teamSyncTimeout = 50 * time.Millisecond

// Server answers the Battlesnake webhooks for any number of concurrent matches.
type Server struct {
	registry   *hunt.Registry
	selector   *hunt.Selector
	recorder   decisionRecorder // nil disables recording
	team       teamSharer       // nil keeps ownership process-local
	appearance Appearance
	logger     *slog.Logger
}

func NewServer(registry *hunt.Registry, selector *hunt.Selector, recorder decisionRecorder, appearance Appearance, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		registry:   registry,
		selector:   selector,
		recorder:   recorder,
		appearance: appearance,
		logger:     logger,
	}
}

// WithTeam shares own-snake registrations with other server instances.
func (s *Server) WithTeam(team teamSharer) *Server {
	s.team = team
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /start", s.handleStart)
	mux.HandleFunc("POST /move", s.handleMove)
	mux.HandleFunc("POST /end", s.handleEnd)
	mux.HandleFunc("/ping", s.handlePing)
	return mux
}

// handleIndex returns the Battlesnake info
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, BattlesnakeInfoResponse{
		APIVersion: "1",
		Author:     s.appearance.Author,
		Color:      s.appearance.Color,
		Head:       pick(s.appearance.Heads, "default"),
		Tail:       pick(s.appearance.Tails, "default"),
		Version:    "1.0.0",
	})
}

// handleStart registers our snake as own for the match so teammates
// started by other instances are never chased.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	s.registry.Register(req.Game.ID, req.You.ID)
	if s.team != nil {
		if err := s.team.Register(r.Context(), req.Game.ID, req.You.ID); err != nil {
			s.requestLogger(req).Warn("team register failed", "err", err)
		}
	}
	s.requestLogger(req).Info("game started", "ruleset", req.Game.Ruleset.Name, "snakes", len(req.Board.Snakes), "tracked_games", s.registry.Len())

	writeJSON(w, StartResponse{
		Color:    s.appearance.Color,
		HeadType: pick(s.appearance.Heads, ""),
		TailType: pick(s.appearance.Tails, ""),
	})
}

// handleMove decides the move for this turn.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	if s.team != nil {
		ctx, cancel := context.WithTimeout(r.Context(), teamSyncTimeout)
		if _, err := s.team.Sync(ctx, req.Game.ID); err != nil {
			s.requestLogger(req).Warn("team sync failed", "err", err)
		}
		cancel()
	}

	s.registry.Touch(req.Game.ID)
	state := convertToGameState(req)
	d := s.selector.Decide(state)

	elapsed := time.Since(startTime)
	s.requestLogger(req).Debug("move",
		"move", d.Move.String(),
		"tier", d.Tier.String(),
		"target", d.TargetID,
		"path_len", d.PathLen,
		"elapsed", elapsed,
	)

	if s.recorder != nil {
		s.recorder.Record(store.DecisionRow{
			GameID:       state.Id,
			Turn:         state.Turn,
			SnakeID:      state.YouId,
			Width:        state.Width,
			Height:       state.Height,
			Move:         d.Move.String(),
			Tier:         d.Tier.String(),
			TargetID:     d.TargetID,
			PathLen:      int32(d.PathLen),
			Options:      int32(d.Options),
			Source:       store.SourceLive,
			RecordedAtNs: startTime.UnixNano(),
		})
	}

	resp := MoveResponse{Move: d.Move.String()}
	if d.Tier == hunt.TierChase {
		resp.Shout = "hunting " + d.TargetID
	}
	writeJSON(w, resp)
}

// handleEnd logs the outcome and drops the match from the registry.
func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	youAlive := false
	for _, snake := range req.Board.Snakes {
		if snake.ID == req.You.ID {
			youAlive = true
			break
		}
	}
	result := "lost"
	if youAlive {
		result = "won"
	} else if len(req.Board.Snakes) == 0 {
		result = "draw"
	}

	if s.team != nil {
		s.team.Forget(req.Game.ID)
	} else {
		s.registry.Forget(req.Game.ID)
	}
	s.requestLogger(req).Info("game ended", "result", result, "tracked_games", s.registry.Len())
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*GameRequest, bool) {
	var req GameRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err == nil {
		err = req.validate()
	}
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, errBadRequest) {
			err = errors.Join(errBadRequest, err)
		}
		s.logger.Warn("rejected request", "path", r.URL.Path, "err", err)
		http.Error(w, err.Error(), status)
		return nil, false
	}
	return &req, true
}

func (s *Server) requestLogger(req *GameRequest) *slog.Logger {
	return s.logger.With("game_id", req.Game.ID, "turn", req.Turn, "snake_id", req.You.ID)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func pick(options []string, fallback string) string {
	if len(options) == 0 {
		return fallback
	}
	return options[rand.Intn(len(options))]
}
