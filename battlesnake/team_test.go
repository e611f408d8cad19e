package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/brensch/hunter/team"
)

func TestMove_TeammateStartedOnAnotherInstance(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	instance := func() http.Handler {
		srv, registry := newTestServer(nil)
		shared, err := team.NewShared(&redis.Options{Addr: mr.Addr()}, "test", registry, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			t.Fatalf("NewShared: %v", err)
		}
		t.Cleanup(func() { shared.Close() })
		return srv.WithTeam(shared).Handler()
	}
	a, b := instance(), instance()

	if rr := post(t, a, "/start", huntRequest("mate")); rr.Code != http.StatusOK {
		t.Fatalf("/start mate status=%d", rr.Code)
	}
	if rr := post(t, b, "/start", huntRequest("me")); rr.Code != http.StatusOK {
		t.Fatalf("/start me status=%d", rr.Code)
	}

	resp := decodeMove(t, post(t, b, "/move", huntRequest("me")))
	if resp.Shout != "hunting enemy" {
		t.Fatalf("shout=%q want hunting enemy", resp.Shout)
	}
}

func TestMove_RedisDownStillAnswers(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	srv, registry := newTestServer(nil)
	shared, err := team.NewShared(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}, "test", registry, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewShared: %v", err)
	}
	defer shared.Close()
	h := srv.WithTeam(shared).Handler()
	mr.Close()

	if rr := post(t, h, "/start", huntRequest("me")); rr.Code != http.StatusOK {
		t.Fatalf("/start status=%d", rr.Code)
	}
	resp := decodeMove(t, post(t, h, "/move", huntRequest("me")))
	if resp.Move == "" {
		t.Fatalf("empty move")
	}
}

type fakeTeam struct {
	registered []string
	synced     int
	forgotten  []string
}

func (f *fakeTeam) Register(ctx context.Context, matchID, agentID string) error {
	f.registered = append(f.registered, matchID+"/"+agentID)
	return nil
}

func (f *fakeTeam) Sync(ctx context.Context, matchID string) (int, error) {
	f.synced++
	return 0, nil
}

func (f *fakeTeam) Forget(matchID string) {
	f.forgotten = append(f.forgotten, matchID)
}

func TestEnd_RoutesThroughTeam(t *testing.T) {
	srv, _ := newTestServer(nil)
	ft := &fakeTeam{}
	h := srv.WithTeam(ft).Handler()

	post(t, h, "/start", huntRequest("me"))
	decodeMove(t, post(t, h, "/move", huntRequest("me")))
	if rr := post(t, h, "/end", huntRequest("me")); rr.Code != http.StatusOK {
		t.Fatalf("/end status=%d", rr.Code)
	}

	if len(ft.registered) != 1 || ft.registered[0] != "g1/me" || ft.synced != 1 {
		t.Fatalf("team calls: %+v", ft)
	}
	if len(ft.forgotten) != 1 || ft.forgotten[0] != "g1" {
		t.Fatalf("forgotten=%v want [g1]", ft.forgotten)
	}
}
