// Package store persists the per-team lobby record, teams and custom cards.
//
// Every lobby access goes through LobbyStore.Update, which holds an exclusive
// per-team lock for one full read-modify-write cycle. The record is stored
// whole; the last write wins.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/3bbing/friends-pyramid/internal/engine"
	"github.com/3bbing/friends-pyramid/internal/pyramid"
)

var ErrNotFound = errors.New("not found")
var ErrTeamNameTaken = errors.New("team name already taken")

// ErrUnchanged may be returned by a Mutator to skip the write.
var ErrUnchanged = errors.New("lobby unchanged")

// Mutator edits the lobby in place. Any error other than ErrUnchanged
// aborts the cycle and nothing is written.
type Mutator func(l *engine.Lobby) error

type LobbyStore interface {
	Update(ctx context.Context, teamID string, fn Mutator) (engine.Lobby, error)
}

type Team struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	InviteToken  string    `json:"invite_token"`
	CreatedAt    time.Time `json:"created_at"`
}

type TeamStore interface {
	CreateTeam(ctx context.Context, t Team) error
	GetTeam(ctx context.Context, id string) (Team, error)
	// FindTeam matches an id first, then a case-insensitive name.
	FindTeam(ctx context.Context, identifier string) (Team, error)
}

// CardStore holds custom cards. An empty team id means global.
type CardStore interface {
	AddCard(ctx context.Context, teamID string, c pyramid.Card) error
	ListCards(ctx context.Context, teamID string) ([]pyramid.Card, error)
}

type Store interface {
	LobbyStore
	TeamStore
	CardStore
	Close() error
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func encodeLobby(l engine.Lobby) ([]byte, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encode lobby %s: %w", l.TeamID, err)
	}
	return raw, nil
}

func decodeLobby(teamID string, raw []byte) (engine.Lobby, error) {
	var l engine.Lobby
	if err := json.Unmarshal(raw, &l); err != nil {
		return engine.Lobby{}, fmt.Errorf("decode lobby %s: %w", teamID, err)
	}
	if !l.State.Phase.Valid() {
		return engine.Lobby{}, fmt.Errorf("decode lobby %s: unknown phase %q", teamID, l.State.Phase)
	}
	if l.State.Phase != engine.PhaseLobbyWaiting && !l.State.Pyramid.Valid() {
		return engine.Lobby{}, fmt.Errorf("decode lobby %s: phase %s without a valid pyramid", teamID, l.State.Phase)
	}
	if l.History == nil {
		l.History = []engine.HistoryEntry{}
	}
	return l, nil
}

// cycle runs fn against a decoded copy of raw and returns the lobby plus
// the bytes to persist, or nil bytes when nothing should be written.
func cycle(teamID string, raw []byte, fn Mutator) (engine.Lobby, []byte, error) {
	l, err := decodeLobby(teamID, raw)
	if err != nil {
		return engine.Lobby{}, nil, err
	}
	before := l.Clone()

	if err := fn(&l); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return l, nil, nil
		}
		return before, nil, err
	}

	l.Version = before.Version + 1
	out, err := encodeLobby(l)
	if err != nil {
		return before, nil, err
	}
	return l, out, nil
}
