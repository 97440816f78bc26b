package store

import (
	"context"
	"slices"
	"sync"

	"github.com/3bbing/friends-pyramid/internal/engine"
	"github.com/3bbing/friends-pyramid/internal/pyramid"
)

// Memory keeps encoded lobby records in process. Each team has its own
// mutex, so teams never block each other.
type Memory struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	lobbies map[string][]byte
	teams   map[string]Team
	cards   map[string][]pyramid.Card
}

func NewMemory() *Memory {
	return &Memory{
		locks:   make(map[string]*sync.Mutex),
		lobbies: make(map[string][]byte),
		teams:   make(map[string]Team),
		cards:   make(map[string][]pyramid.Card),
	}
}

func (m *Memory) lockFor(teamID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lk, ok := m.locks[teamID]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[teamID] = lk
	}
	return lk
}

func (m *Memory) Update(ctx context.Context, teamID string, fn Mutator) (engine.Lobby, error) {
	lk := m.lockFor(teamID)
	lk.Lock()
	defer lk.Unlock()

	if err := ctx.Err(); err != nil {
		return engine.Lobby{}, err
	}

	m.mu.Lock()
	raw, ok := m.lobbies[teamID]
	m.mu.Unlock()
	if !ok {
		var err error
		raw, err = encodeLobby(engine.NewLobby(teamID))
		if err != nil {
			return engine.Lobby{}, err
		}
		m.mu.Lock()
		m.lobbies[teamID] = raw
		m.mu.Unlock()
	}

	l, out, err := cycle(teamID, raw, fn)
	if err != nil {
		return l, err
	}
	if out != nil {
		m.mu.Lock()
		m.lobbies[teamID] = out
		m.mu.Unlock()
	}
	return l, nil
}

func (m *Memory) CreateTeam(_ context.Context, t Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.teams {
		if nameKey(existing.Name) == nameKey(t.Name) {
			return ErrTeamNameTaken
		}
	}
	m.teams[t.ID] = t
	return nil
}

func (m *Memory) GetTeam(_ context.Context, id string) (Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[id]
	if !ok {
		return Team{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) FindTeam(ctx context.Context, identifier string) (Team, error) {
	if t, err := m.GetTeam(ctx, identifier); err == nil {
		return t, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if nameKey(t.Name) == nameKey(identifier) {
			return t, nil
		}
	}
	return Team{}, ErrNotFound
}

func (m *Memory) AddCard(_ context.Context, teamID string, c pyramid.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[teamID] = append(m.cards[teamID], c)
	return nil
}

func (m *Memory) ListCards(_ context.Context, teamID string) ([]pyramid.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.cards[""])
	if teamID != "" {
		out = append(out, m.cards[teamID]...)
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
