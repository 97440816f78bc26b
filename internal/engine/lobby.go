package engine

import (
	"maps"
	"slices"
	"time"

	"github.com/3bbing/friends-pyramid/internal/pyramid"
)

type Player struct {
	ID       string    `json:"player_id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
	IsHost   bool      `json:"is_host"`
}

type Score struct {
	Matches int  `json:"matches"`
	Leaf    bool `json:"leaf"`
	Points  int  `json:"points"`
}

// GameState is the live round. It is replaced wholesale when a round starts
// and mutated in place by submissions.
type GameState struct {
	Phase          Phase                   `json:"phase"`
	RoundIndex     int                     `json:"round_index"`
	ActivePlayerID string                  `json:"active_player_id,omitempty"`
	Pyramid        *pyramid.Pyramid        `json:"pyramid"`
	SelectedPools  []string                `json:"selected_pools,omitempty"`
	Answers        map[string]pyramid.Path `json:"answers_by_player"`
	Finished       map[string]bool         `json:"finished"`
	Scores         map[string]Score        `json:"scores"`
	Totals         map[string]int          `json:"totals"`
	TimerSeconds   int                     `json:"timer_seconds"`
	StartedAt      time.Time               `json:"started_at,omitzero"`
}

// HistoryEntry is a frozen copy of a finalized round.
type HistoryEntry struct {
	RoundIndex     int                     `json:"round_index"`
	StartedAt      time.Time               `json:"started_at"`
	ActivePlayerID string                  `json:"active_player_id"`
	Pyramid        *pyramid.Pyramid        `json:"pyramid"`
	Answers        map[string]pyramid.Path `json:"answers_by_player"`
	Finished       map[string]bool         `json:"finished"`
	Scores         map[string]Score        `json:"scores"`
	Phase          Phase                   `json:"phase"`
	FinishedAt     time.Time               `json:"finished_at"`
}

// Lobby is the per-team record and the unit of locking.
type Lobby struct {
	TeamID  string         `json:"team_id"`
	Players []Player       `json:"players"`
	State   GameState      `json:"game_state"`
	History []HistoryEntry `json:"round_history"`
	// Version counts saved writes. The store bumps it.
	Version int `json:"version"`
}

func (l *Lobby) FindPlayer(id string) (Player, bool) {
	for _, p := range l.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// Clone deep-copies everything Apply may mutate.
func (l Lobby) Clone() Lobby {
	out := l
	out.Players = slices.Clone(l.Players)
	out.History = slices.Clone(l.History)
	out.State = l.State.clone()
	return out
}

func (s GameState) clone() GameState {
	out := s
	out.SelectedPools = slices.Clone(s.SelectedPools)
	out.Answers = clonePaths(s.Answers)
	out.Finished = maps.Clone(s.Finished)
	out.Scores = maps.Clone(s.Scores)
	out.Totals = maps.Clone(s.Totals)
	if out.Answers == nil {
		out.Answers = map[string]pyramid.Path{}
	}
	if out.Finished == nil {
		out.Finished = map[string]bool{}
	}
	if out.Scores == nil {
		out.Scores = map[string]Score{}
	}
	if out.Totals == nil {
		out.Totals = map[string]int{}
	}
	return out
}

func clonePaths(in map[string]pyramid.Path) map[string]pyramid.Path {
	if in == nil {
		return nil
	}
	out := make(map[string]pyramid.Path, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}
