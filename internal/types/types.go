package types

import (
	"github.com/3bbing/friends-pyramid/internal/engine"
	api "github.com/3bbing/friends-pyramid/pkg/types"
)

type ClientMessage struct {
	Type   string             `json:"type"` // "Poll" | "Action"
	Action *api.ActionRequest `json:"action,omitempty"`
}

type ServerMessage struct {
	Type     string        `json:"type"` // "StateSnapshot" | "Error"
	Seq      int           `json:"seq,omitempty"`
	Lobby    *engine.Lobby `json:"lobby,omitempty"`
	Now      int64         `json:"now,omitempty"`
	Error    string        `json:"error,omitempty"`
	MaxDepth int           `json:"max_depth,omitempty"`
}
