package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/hunter/arena"
)

type GameUpdate struct {
	WorkerID int
	Result   arena.Result
	Rows     int
}

type model struct {
	gamesPlayed int
	decisions   int
	turns       int64
	wins        map[int]int
	draws       int
	timeouts    int
	tiers       map[string]int
	startTime   time.Time
	recentGames []string
	updates     chan GameUpdate
}

func initialModel(updates chan GameUpdate) model {
	return model{
		startTime: time.Now(),
		wins:      make(map[int]int),
		tiers:     make(map[string]int),
		updates:   updates,
	}
}

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan GameUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.turns = totalTurns.Load()
		return m, tickCmd()
	case GameUpdate:
		m.record(msg)
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m *model) record(u GameUpdate) {
	m.gamesPlayed++
	m.decisions += u.Rows
	switch {
	case u.Result.TimedOut:
		m.timeouts++
	case u.Result.WinnerTeam < 0:
		m.draws++
	default:
		m.wins[u.Result.WinnerTeam]++
	}
	for tier, n := range u.Result.Tiers {
		m.tiers[tier] += n
	}

	m.recentGames = append([]string{summarize(u)}, m.recentGames...)
	if len(m.recentGames) > 10 {
		m.recentGames = m.recentGames[:10]
	}
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	gamesPerSec := float64(m.gamesPlayed) / duration.Seconds()
	turnsPerSec := float64(m.turns) / duration.Seconds()
	if duration.Seconds() < 1 {
		gamesPerSec = 0
		turnsPerSec = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Games Played:   %d\n", m.gamesPlayed)
	fmt.Fprintf(&b, "Decisions:      %d\n", m.decisions)
	fmt.Fprintf(&b, "Total Turns:    %d\n", m.turns)
	fmt.Fprintf(&b, "Duration:       %s\n", duration.Round(time.Second))
	fmt.Fprintf(&b, "Games/Sec:      %.2f\n", gamesPerSec)
	fmt.Fprintf(&b, "Turns/Sec:      %.2f\n\n", turnsPerSec)

	b.WriteString("Wins:\n")
	teams := make([]int, 0, len(m.wins))
	for team := range m.wins {
		teams = append(teams, team)
	}
	sort.Ints(teams)
	for _, team := range teams {
		fmt.Fprintf(&b, "  team %d: %d\n", team, m.wins[team])
	}
	fmt.Fprintf(&b, "  draws: %d  timeouts: %d\n\n", m.draws, m.timeouts)

	b.WriteString("Tiers:\n")
	for _, tier := range []string{"chase", "safe", "acceptable", "default"} {
		share := 0.0
		if m.decisions > 0 {
			share = 100 * float64(m.tiers[tier]) / float64(m.decisions)
		}
		fmt.Fprintf(&b, "  %-10s %8d  %5.1f%%\n", tier, m.tiers[tier], share)
	}

	b.WriteString("\nRecent Games:\n")
	for _, g := range m.recentGames {
		b.WriteString(g + "\n")
	}

	b.WriteString("\nPress q to quit.\n")
	return b.String()
}

func summarize(u GameUpdate) string {
	winner := fmt.Sprintf("team %d", u.Result.WinnerTeam)
	if u.Result.TimedOut {
		winner = "timeout"
	} else if u.Result.WinnerTeam < 0 {
		winner = "draw"
	}
	return fmt.Sprintf("Worker %d: %s, Turns %d, Decisions %d", u.WorkerID, winner, u.Result.Turns, u.Rows)
}
