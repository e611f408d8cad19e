// Package discovery finds recent game ids by crawling Battlesnake
// leaderboards and the stats pages of the players listed there.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Config holds discovery worker configuration
type Config struct {
	LeaderboardURLs []string      // Multiple leaderboard URLs to scrape
	RequestDelay    time.Duration // Delay between HTTP requests to be polite
	MaxPlayers      int           // Maximum number of players to check per leaderboard (0 = unlimited)
	UserAgent       string
	Logger          *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		LeaderboardURLs: []string{
			"https://play.battlesnake.com/leaderboard/standard",
			"https://play.battlesnake.com/leaderboard/standard-duels",
		},
		RequestDelay: 500 * time.Millisecond,
		MaxPlayers:   100,
		UserAgent:    "HunterReplay/1.0 (policy-evaluation)",
	}
}

// Seen reports game ids that should not be emitted again.
// *store.SeenLog satisfies it.
type Seen interface {
	Has(gameID string) bool
}

// Worker discovers game IDs from the Battlesnake leaderboard
type Worker struct {
	config   Config
	client   *http.Client
	seen     Seen
	logger   *slog.Logger
	knownIDs map[string]bool
	knownMu  sync.Mutex
}

var (
	gameIDRe = regexp.MustCompile(`/game/([a-f0-9-]+)`)
	// Matches /leaderboard/{arena}/{username}/stats (standard, standard-duels, etc.)
	playerRe = regexp.MustCompile(`/leaderboard/[^/]+/([^/]+)/stats`)
	arenaRe  = regexp.MustCompile(`/leaderboard/([^/]+)/?$`)
)

// NewWorker creates a new discovery worker. seen may be nil.
func NewWorker(config Config, seen Seen) *Worker {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		seen:     seen,
		logger:   logger.With("component", "discovery"),
		knownIDs: make(map[string]bool),
	}
}

// Discover crawls every leaderboard and sends each new game id to out.
// It returns when the crawl finishes or ctx is done.
func (w *Worker) Discover(ctx context.Context, out chan<- string) error {
	w.logger.Info("starting leaderboard crawl", "leaderboards", len(w.config.LeaderboardURLs))

	totalNewGames := 0
	for _, leaderboardURL := range w.config.LeaderboardURLs {
		players, arenaType, err := w.leaderboardPlayers(ctx, leaderboardURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn("leaderboard failed", "url", leaderboardURL, "err", err)
			continue
		}
		w.logger.Info("found players", "arena", arenaType, "players", len(players))

		if w.config.MaxPlayers > 0 && len(players) > w.config.MaxPlayers {
			players = players[:w.config.MaxPlayers]
		}

		newGames := 0
		for i, player := range players {
			w.logger.Debug("checking player", "arena", arenaType, "n", i+1, "of", len(players), "player", player.username)

			gameIDs, err := w.playerGames(ctx, player.statsURL)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Warn("player games failed", "player", player.username, "err", err)
				continue
			}

			for _, gameID := range gameIDs {
				if !w.claim(gameID) {
					continue
				}
				select {
				case out <- gameID:
					newGames++
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			if err := sleep(ctx, w.config.RequestDelay); err != nil {
				return err
			}
		}

		w.logger.Info("finished leaderboard", "arena", arenaType, "new_games", newGames)
		totalNewGames += newGames
	}

	w.logger.Info("all leaderboards complete", "new_games", totalNewGames)
	return nil
}

// claim reports whether gameID is new, marking it known.
func (w *Worker) claim(gameID string) bool {
	if w.seen != nil && w.seen.Has(gameID) {
		return false
	}
	w.knownMu.Lock()
	defer w.knownMu.Unlock()
	if w.knownIDs[gameID] {
		return false
	}
	w.knownIDs[gameID] = true
	return true
}

// playerInfo holds player data from a leaderboard
type playerInfo struct {
	username string
	statsURL string
}

// leaderboardPlayers fetches player usernames from the leaderboard page
func (w *Worker) leaderboardPlayers(ctx context.Context, leaderboardURL string) ([]playerInfo, string, error) {
	doc, base, err := w.fetch(ctx, leaderboardURL)
	if err != nil {
		return nil, "", err
	}

	// Extract arena type from URL (e.g., "standard" or "standard-duels")
	arenaType := "unknown"
	if matches := arenaRe.FindStringSubmatch(base.Path); len(matches) >= 2 {
		arenaType = matches[1]
	}

	var players []playerInfo
	seen := make(map[string]bool)

	doc.Find("a[href*='/leaderboard/']").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}

		matches := playerRe.FindStringSubmatch(href)
		if len(matches) < 2 || seen[matches[1]] {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		seen[matches[1]] = true
		players = append(players, playerInfo{
			username: matches[1],
			statsURL: base.ResolveReference(ref).String(),
		})
	})

	return players, arenaType, nil
}

// playerGames fetches game IDs from a player's stats page
func (w *Worker) playerGames(ctx context.Context, statsURL string) ([]string, error) {
	doc, _, err := w.fetch(ctx, statsURL)
	if err != nil {
		return nil, err
	}

	var gameIDs []string
	seen := make(map[string]bool)
	doc.Find("a[href*='/game/']").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		matches := gameIDRe.FindStringSubmatch(href)
		if len(matches) >= 2 && !seen[matches[1]] {
			seen[matches[1]] = true
			gameIDs = append(gameIDs, matches[1])
		}
	})

	return gameIDs, nil
}

func (w *Worker) fetch(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, err
	}
	if w.config.UserAgent != "" {
		req.Header.Set("User-Agent", w.config.UserAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%s: unexpected status code: %d", rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, req.URL, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
