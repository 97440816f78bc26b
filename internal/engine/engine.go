package engine

import (
	"errors"
	"slices"
	"time"

	"github.com/3bbing/friends-pyramid/internal/pyramid"
)

var ErrInsufficientCards = pyramid.ErrInsufficientCards
var ErrInvalidPath = pyramid.ErrInvalidPath
var ErrNotActiveRound = errors.New("no active round")
var ErrUnauthorized = errors.New("only the host may do this")
var ErrUnknownPlayer = errors.New("player not in lobby")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseLobbyWaiting Phase = "LOBBY_WAITING"
	PhaseRoundActive  Phase = "ROUND_ACTIVE"
	PhaseRoundReveal  Phase = "ROUND_REVEAL"
)

var allPhases = []Phase{PhaseLobbyWaiting, PhaseRoundActive, PhaseRoundReveal}

func (p Phase) Valid() bool { return slices.Contains(allPhases, p) }

type CommandType string

const (
	CmdJoin        CommandType = "Join"
	CmdStartRound  CommandType = "StartRound"
	CmdSubmitPath  CommandType = "SubmitPath"
	CmdForceReveal CommandType = "ForceReveal"
	CmdNextRound   CommandType = "NextRound"
)

/*
	CmdJoin        -> EvtPlayerJoined
	CmdStartRound  -> EvtRoundStarted
	CmdSubmitPath  -> EvtPathSubmitted [-> EvtRoundFinalized -> EvtHistoryAppended]
	CmdForceReveal -> EvtRoundFinalized -> EvtHistoryAppended
	CmdNextRound   -> EvtRoundStarted
	CheckTimeout   -> EvtTimerExpired -> EvtRoundFinalized -> EvtHistoryAppended
*/

type transition struct {
	from     []Phase
	hostOnly bool
}

var transitions = map[CommandType]transition{
	CmdJoin:        {from: allPhases},
	CmdStartRound:  {from: allPhases, hostOnly: true},
	CmdSubmitPath:  {from: []Phase{PhaseRoundActive}},
	CmdForceReveal: {from: []Phase{PhaseRoundActive}, hostOnly: true},
	CmdNextRound:   {from: allPhases, hostOnly: true},
}

// Command is a single client intent against a lobby. Cards are resolved
// from the question pools by the caller before the command is applied.
type Command struct {
	Type         CommandType
	PlayerID     string
	PlayerName   string
	Depth        int
	TimerSeconds int
	Pools        []string
	Cards        []pyramid.Card
	RawPath      string
}

type EventType string

const (
	EvtPlayerJoined    EventType = "PlayerJoined"
	EvtRoundStarted    EventType = "RoundStarted"
	EvtPathSubmitted   EventType = "PathSubmitted"
	EvtRoundFinalized  EventType = "RoundFinalized"
	EvtHistoryAppended EventType = "HistoryAppended"
	EvtTimerExpired    EventType = "TimerExpired"
)

type Event struct {
	Type       EventType
	PlayerID   string
	RoundIndex int
}

// Apply validates cmd against the transition table and returns the events
// and the new lobby. On error the input lobby is returned untouched.
func Apply(l Lobby, cmd Command, now time.Time) ([]Event, Lobby, error) {
	tr, ok := transitions[cmd.Type]
	if !ok {
		return nil, l, ErrUnsupportedCommand
	}

	if cmd.Type != CmdJoin {
		actor, ok := l.FindPlayer(cmd.PlayerID)
		if !ok {
			return nil, l, ErrUnknownPlayer
		}
		if tr.hostOnly && !actor.IsHost {
			return nil, l, ErrUnauthorized
		}
	}
	if !slices.Contains(tr.from, l.State.Phase) {
		return nil, l, ErrNotActiveRound
	}

	newLobby := l.Clone()

	switch cmd.Type {
	case CmdJoin:
		if _, exists := l.FindPlayer(cmd.PlayerID); exists {
			return nil, l, nil
		}
		name := cmd.PlayerName
		if name == "" {
			name = defaultPlayerName(len(l.Players) + 1)
		}
		newLobby.Players = append(newLobby.Players, Player{
			ID:       cmd.PlayerID,
			Name:     name,
			JoinedAt: now,
			IsHost:   len(l.Players) == 0,
		})
		return []Event{{Type: EvtPlayerJoined, PlayerID: cmd.PlayerID}}, newLobby, nil

	case CmdStartRound:
		st, err := newRound(newLobby, cmd, 0, now)
		if err != nil {
			return nil, l, err
		}
		newLobby.State = st
		return []Event{{Type: EvtRoundStarted, PlayerID: st.ActivePlayerID, RoundIndex: st.RoundIndex}}, newLobby, nil

	case CmdNextRound:
		st, err := newRound(newLobby, cmd, l.State.RoundIndex+1, now)
		if err != nil {
			return nil, l, err
		}
		newLobby.State = st
		return []Event{{Type: EvtRoundStarted, PlayerID: st.ActivePlayerID, RoundIndex: st.RoundIndex}}, newLobby, nil

	case CmdSubmitPath:
		depth := newLobby.State.Pyramid.Depth
		path := pyramid.NormalizePath(cmd.RawPath, depth)
		if err := pyramid.ValidatePath(path, depth); err != nil {
			return nil, l, err
		}

		// Resubmission before finalize overwrites the earlier path.
		newLobby.State.Answers[cmd.PlayerID] = path
		newLobby.State.Finished[cmd.PlayerID] = true
		events := []Event{{Type: EvtPathSubmitted, PlayerID: cmd.PlayerID, RoundIndex: newLobby.State.RoundIndex}}

		if allFinished(newLobby) {
			events = append(events, finalize(&newLobby, now)...)
		}
		return events, newLobby, nil

	case CmdForceReveal:
		return finalize(&newLobby, now), newLobby, nil

	default:
		return nil, l, ErrUnsupportedCommand
	}
}

// newRound builds the pyramid and a fresh GameState. Totals carry over.
func newRound(l Lobby, cmd Command, roundIndex int, now time.Time) (GameState, error) {
	if maxDepth := pyramid.MaxDepth(cmd.Cards, pyramid.DefaultDepthCap); cmd.Depth > maxDepth {
		return GameState{}, &pyramid.InsufficientCardsError{
			Requested: cmd.Depth,
			Available: len(cmd.Cards),
			MaxDepth:  maxDepth,
		}
	}
	p, err := pyramid.Build(cmd.Cards, cmd.Depth)
	if err != nil {
		return GameState{}, err
	}

	st := NewEmptyState()
	st.Phase = PhaseRoundActive
	st.RoundIndex = roundIndex
	st.ActivePlayerID = ActivePlayerFor(l.Players, roundIndex)
	st.Pyramid = p
	st.SelectedPools = slices.Clone(cmd.Pools)
	st.TimerSeconds = max(0, cmd.TimerSeconds)
	st.StartedAt = now
	if l.State.Totals != nil {
		st.Totals = l.State.Totals
	}
	return st, nil
}
