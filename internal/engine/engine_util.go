package engine

import (
	"fmt"

	"github.com/3bbing/friends-pyramid/internal/pyramid"
)

// NewLobby is the record created on a team's first access.
func NewLobby(teamID string) Lobby {
	return Lobby{
		TeamID:  teamID,
		Players: []Player{},
		State:   NewEmptyState(),
		History: []HistoryEntry{},
	}
}

func NewEmptyState() GameState {
	return GameState{
		Phase:    PhaseLobbyWaiting,
		Answers:  map[string]pyramid.Path{},
		Finished: map[string]bool{},
		Scores:   map[string]Score{},
		Totals:   map[string]int{},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func defaultPlayerName(n int) string {
	return fmt.Sprintf("Spieler %d", n)
}

// allFinished is true once every lobby member has submitted.
func allFinished(l Lobby) bool {
	if len(l.Players) == 0 {
		return false
	}
	for _, p := range l.Players {
		if !l.State.Finished[p.ID] {
			return false
		}
	}
	return true
}
