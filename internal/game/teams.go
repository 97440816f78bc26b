package game

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3bbing/friends-pyramid/internal/auth"
	"github.com/3bbing/friends-pyramid/internal/engine"
	"github.com/3bbing/friends-pyramid/internal/pyramid"
	"github.com/3bbing/friends-pyramid/internal/store"
	api "github.com/3bbing/friends-pyramid/pkg/types"
)

const (
	maxTeamNameLen   = 60
	maxPlayerNameLen = 40
	inviteTokenLen   = 8
)

var ErrMissingTeamName = errors.New("team name is required")
var ErrBadInvite = errors.New("invalid invite link")

// CreateTeam registers a team and creates its empty lobby.
func (s *Service) CreateTeam(ctx context.Context, name, password string) (store.Team, error) {
	name = pyramid.SanitizeText(name, maxTeamNameLen)
	if name == "" {
		return store.Team{}, ErrMissingTeamName
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return store.Team{}, err
	}
	token, err := GenerateCode(inviteTokenLen)
	if err != nil {
		return store.Team{}, err
	}

	team := store.Team{
		ID:           uuid.NewString(),
		Name:         name,
		PasswordHash: hash,
		InviteToken:  token,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		return store.Team{}, err
	}
	if _, err := s.lobbies.Update(ctx, team.ID, func(*engine.Lobby) error { return store.ErrUnchanged }); err != nil {
		return store.Team{}, err
	}

	s.log.Info("team created", zap.String("team_id", team.ID), zap.String("name", team.Name))
	return team, nil
}

// FindTeam accepts a team id or a team name.
func (s *Service) FindTeam(ctx context.Context, identifier string) (store.Team, error) {
	return s.teams.FindTeam(ctx, identifier)
}

// JoinTeam checks the team password and invite token and appends a player.
// The first player to join becomes host.
func (s *Service) JoinTeam(ctx context.Context, teamID, token, password, name string) (engine.Player, engine.Lobby, error) {
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return engine.Player{}, engine.Lobby{}, err
	}
	if err := auth.CheckPassword(team.PasswordHash, password); err != nil {
		return engine.Player{}, engine.Lobby{}, err
	}
	if team.InviteToken != "" && token != team.InviteToken {
		return engine.Player{}, engine.Lobby{}, ErrBadInvite
	}

	now := s.now()
	cmd := engine.Command{
		Type:       engine.CmdJoin,
		PlayerID:   uuid.NewString(),
		PlayerName: pyramid.SanitizeText(name, maxPlayerNameLen),
	}
	l, err := s.lobbies.Update(ctx, teamID, func(l *engine.Lobby) error {
		_, next, err := engine.Apply(*l, cmd, now)
		if err != nil {
			return err
		}
		*l = next
		return nil
	})
	if err != nil {
		return engine.Player{}, engine.Lobby{}, err
	}

	player, _ := l.FindPlayer(cmd.PlayerID)
	s.log.Info("player joined",
		zap.String("team_id", teamID),
		zap.String("player_id", player.ID),
		zap.Bool("host", player.IsHost))
	s.publish(l, now)
	return player, l, nil
}

// PoolOverview lists the pools with card counts and the deepest pyramid
// all cards together could fill.
func (s *Service) PoolOverview(ctx context.Context, teamID string) (api.PoolsResponse, error) {
	pools := s.pools.ListPools()
	counts := s.pools.CountCards()

	resp := api.PoolsResponse{
		DefaultDepth: s.opts.DefaultDepth,
		DefaultTimer: s.opts.DefaultTimer,
		TimerOptions: s.opts.TimerOptions,
	}
	keys := make([]string, 0, len(pools))
	for key, p := range pools {
		keys = append(keys, key)
		resp.Pools = append(resp.Pools, api.PoolInfo{Key: key, Label: p.Label, Count: counts[key], Default: p.Default})
	}
	sort.Slice(resp.Pools, func(i, j int) bool { return resp.Pools[i].Key < resp.Pools[j].Key })

	cards, err := s.pools.LoadCards(ctx, keys, teamID)
	if err != nil {
		return resp, err
	}
	resp.MaxDepth = pyramid.MaxDepth(cards, pyramid.DefaultDepthCap)
	resp.DefaultDepth = min(max(MinDepth, resp.DefaultDepth), resp.MaxDepth)
	return resp, nil
}
