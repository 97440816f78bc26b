// Package game runs lobby actions: it resolves question pools, applies
// engine commands inside one store cycle and publishes the result.
package game

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/3bbing/friends-pyramid/internal/auth"
	"github.com/3bbing/friends-pyramid/internal/engine"
	"github.com/3bbing/friends-pyramid/internal/feed"
	"github.com/3bbing/friends-pyramid/internal/hub"
	"github.com/3bbing/friends-pyramid/internal/pyramid"
	"github.com/3bbing/friends-pyramid/internal/questions"
	"github.com/3bbing/friends-pyramid/internal/store"
	api "github.com/3bbing/friends-pyramid/pkg/types"
)

var ErrUnknownAction = errors.New("unknown action")
var ErrTeamMismatch = errors.New("not joined to this team")

// Pools is the question pool provider.
type Pools interface {
	SanitizeSelection(keys []string) []string
	LoadCards(ctx context.Context, keys []string, teamID string) ([]pyramid.Card, error)
	AddCustom(ctx context.Context, teamID string, c pyramid.Card, global bool) (pyramid.Card, error)
	ListPools() map[string]questions.Pool
	CountCards() map[string]int
}

type Service struct {
	lobbies store.LobbyStore
	teams   store.TeamStore
	pools   Pools
	hub     *hub.Hub
	log     *zap.Logger
	opts    Options
	now     func() time.Time
}

// NewService wires the service. h may be nil when no realtime feed is served.
func NewService(lobbies store.LobbyStore, teams store.TeamStore, pools Pools, h *hub.Hub, log *zap.Logger, opts Options) *Service {
	return &Service{
		lobbies: lobbies,
		teams:   teams,
		pools:   pools,
		hub:     h,
		log:     log,
		opts:    opts,
		now:     time.Now,
	}
}

func (s *Service) Options() Options { return s.opts }

// State reads the lobby, finalizing the round first if its timer ran out.
func (s *Service) State(ctx context.Context, teamID string) (engine.Lobby, time.Time, error) {
	now := s.now()
	var events []engine.Event

	l, err := s.lobbies.Update(ctx, teamID, func(l *engine.Lobby) error {
		evs, next, expired := engine.CheckTimeout(*l, now)
		if !expired {
			return store.ErrUnchanged
		}
		events = evs
		*l = next
		return nil
	})
	if err != nil {
		return engine.Lobby{}, now, err
	}

	if len(events) > 0 {
		s.logEvents(teamID, "", events)
		s.publish(l, now)
	}
	return l, now, nil
}

// Act applies a client action for the caller.
func (s *Service) Act(ctx context.Context, id auth.Identity, req api.ActionRequest) (engine.Lobby, error) {
	if req.TeamID != "" && req.TeamID != id.TeamID {
		return engine.Lobby{}, ErrTeamMismatch
	}

	switch req.Action {
	case api.ActionAddQuestion:
		card := pyramid.Card{Question: req.Question, OptionA: req.OptionA, OptionB: req.OptionB}
		if _, err := s.pools.AddCustom(ctx, id.TeamID, card, req.Global); err != nil {
			return engine.Lobby{}, err
		}
		l, _, err := s.State(ctx, id.TeamID)
		return l, err
	case api.ActionStartGame, api.ActionNextRound, api.ActionSubmitAnswers, api.ActionForceReveal:
	default:
		return engine.Lobby{}, ErrUnknownAction
	}

	// An expired round is finalized and saved even if the action then fails.
	if _, _, err := s.State(ctx, id.TeamID); err != nil {
		return engine.Lobby{}, err
	}

	now := s.now()
	var events []engine.Event
	l, err := s.lobbies.Update(ctx, id.TeamID, func(l *engine.Lobby) error {
		tevs, current, _ := engine.CheckTimeout(*l, now)

		cmd, err := s.command(ctx, current, id, req)
		if err != nil {
			return err
		}
		evs, next, err := engine.Apply(current, cmd, now)
		if err != nil {
			return err
		}
		events = append(tevs, evs...)
		*l = next
		return nil
	})
	if err != nil {
		s.log.Info("action rejected",
			zap.String("team_id", id.TeamID),
			zap.String("player_id", id.PlayerID),
			zap.String("action", req.Action),
			zap.Error(err))
		return l, err
	}

	s.logEvents(id.TeamID, id.PlayerID, events)
	s.publish(l, now)
	return l, nil
}

// command translates a request into an engine command, loading cards for
// round starts. It runs while the lobby lock is held.
func (s *Service) command(ctx context.Context, l engine.Lobby, id auth.Identity, req api.ActionRequest) (engine.Command, error) {
	cmd := engine.Command{PlayerID: id.PlayerID}

	switch req.Action {
	case api.ActionStartGame, api.ActionNextRound:
		cmd.Type = engine.CmdStartRound
		selection := req.Pools
		if req.Action == api.ActionNextRound {
			cmd.Type = engine.CmdNextRound
			if len(selection) == 0 {
				selection = l.State.SelectedPools
			}
		}
		cmd.Pools = s.pools.SanitizeSelection(selection)
		cmd.Depth = s.opts.depth(req.Depth)
		cmd.TimerSeconds = s.opts.timer(req.Timer)

		cards, err := s.pools.LoadCards(ctx, cmd.Pools, id.TeamID)
		if err != nil {
			return cmd, err
		}
		cmd.Cards = cards

	case api.ActionSubmitAnswers:
		cmd.Type = engine.CmdSubmitPath
		cmd.RawPath = req.Path

	case api.ActionForceReveal:
		cmd.Type = engine.CmdForceReveal
	}
	return cmd, nil
}

func (s *Service) logEvents(teamID, playerID string, events []engine.Event) {
	for _, e := range events {
		s.log.Info("lobby event",
			zap.String("team_id", teamID),
			zap.String("actor", playerID),
			zap.String("event", string(e.Type)),
			zap.String("player_id", e.PlayerID),
			zap.Int("round", e.RoundIndex))
	}
}

// publish pushes the new record to the team's feed if anyone listens.
func (s *Service) publish(l engine.Lobby, now time.Time) {
	if s.hub == nil {
		return
	}
	if f := s.hub.Feed(l.TeamID); f != nil {
		f.Send(feed.Publish{Lobby: l, ServerTime: now})
	}
}
