package types

import "github.com/3bbing/friends-pyramid/internal/engine"

// Actions accepted by POST /api/action.
const (
	ActionStartGame     = "start_game"
	ActionSubmitAnswers = "submit_answers"
	ActionForceReveal   = "force_reveal"
	ActionNextRound     = "next_round"
	ActionAddQuestion   = "add_question"
)

// ActionRequest:
//   team_id: string
//   action: start_game | submit_answers | force_reveal | next_round | add_question
//   depth, timer: number (start_game, next_round)
//   pools: string[] (start_game, next_round)
//   path: "LRL..." (submit_answers)
//   question, optionA, optionB, global (add_question)
type ActionRequest struct {
	TeamID   string   `json:"team_id"`
	Action   string   `json:"action"`
	Depth    *int     `json:"depth,omitempty"`
	Timer    *int     `json:"timer,omitempty"`
	Pools    []string `json:"pools,omitempty"`
	Path     string   `json:"path,omitempty"`
	Question string   `json:"question,omitempty"`
	OptionA  string   `json:"optionA,omitempty"`
	OptionB  string   `json:"optionB,omitempty"`
	Global   bool     `json:"global,omitempty"`
}

type ActionResponse struct {
	OK    bool          `json:"ok"`
	Lobby *engine.Lobby `json:"lobby,omitempty"`
}

// ErrorResponse carries max_depth when the pools cannot fill the requested pyramid.
type ErrorResponse struct {
	Error    string `json:"error"`
	MaxDepth int    `json:"max_depth,omitempty"`
}

// StateResponse:
//   lobby: full lobby record
//   now: server time, unix seconds, for client-side countdowns
type StateResponse struct {
	Lobby engine.Lobby `json:"lobby"`
	Now   int64        `json:"now"`
}

type CreateTeamRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type CreateTeamResponse struct {
	TeamID      string `json:"team_id"`
	Name        string `json:"name"`
	InviteToken string `json:"invite_token"`
	InviteURL   string `json:"invite_url"`
}

type JoinRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type JoinResponse struct {
	Player  engine.Player `json:"player"`
	Session string        `json:"session"`
	Lobby   engine.Lobby  `json:"lobby"`
}

type PoolInfo struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Default bool   `json:"default"`
}

// PoolsResponse lists pools plus the bounds a start form needs.
type PoolsResponse struct {
	Pools        []PoolInfo `json:"pools"`
	MaxDepth     int        `json:"max_depth"`
	DefaultDepth int        `json:"default_depth"`
	DefaultTimer int        `json:"default_timer"`
	TimerOptions []int      `json:"timer_options"`
}
