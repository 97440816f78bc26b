package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3bbing/friends-pyramid/internal/auth"
	"github.com/3bbing/friends-pyramid/internal/engine"
	"github.com/3bbing/friends-pyramid/internal/feed"
	"github.com/3bbing/friends-pyramid/internal/game"
	"github.com/3bbing/friends-pyramid/internal/hub"
	"github.com/3bbing/friends-pyramid/internal/types"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 3 * time.Second
)

// Handler streams lobby snapshots to a joined player. The client may send
// Poll to get the current state (which also expires a timed-out round) or
// Action to act like POST /api/action.
func Handler(svc *game.Service, issuer *auth.Issuer, h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := issuer.Verify(auth.TokenFromRequest(r))
		if err != nil {
			http.Error(w, "not joined", http.StatusUnauthorized)
			return
		}
		fd := h.Ensure(id.TeamID)
		if fd == nil {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clog := log.With(zap.String("team_id", id.TeamID), zap.String("player_id", id.PlayerID))
		ctx := r.Context()

		out := make(chan feed.Snapshot, 8)
		clientID := uuid.NewString()
		if !fd.Send(feed.Join{ClientID: clientID, Outbox: out}) {
			return
		}
		defer fd.Send(feed.Leave{ClientID: clientID})

		// Writer goroutine
		wctx, wcancel := context.WithCancel(ctx)
		defer wcancel()
		go func() {
			pump(wctx, out, fd.Done(), func(snap feed.Snapshot) {
				write(ctx, conn, snapshotMessage(snap.Seq, snap.Lobby, snap.ServerTime))
			})
			// Dropped as too slow, or the feed stopped.
			if wctx.Err() == nil {
				conn.Close(websocket.StatusTryAgainLater, "feed closed")
			}
		}()

		if lobby, now, err := svc.State(ctx, id.TeamID); err == nil {
			write(ctx, conn, snapshotMessage(0, lobby, now))
		}

		// Reader loop
		for {
			rctx, cancel := context.WithTimeout(ctx, readTimeout)
			_, data, err := conn.Read(rctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("ws read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				write(ctx, conn, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}

			switch cm.Type {
			case "Poll":
				lobby, now, err := svc.State(ctx, id.TeamID)
				if err != nil {
					write(ctx, conn, errorMessage(err))
					continue
				}
				write(ctx, conn, snapshotMessage(0, lobby, now))
			case "Action":
				if cm.Action == nil {
					write(ctx, conn, types.ServerMessage{Type: "Error", Error: "missing action"})
					continue
				}
				// Success reaches the client through the feed.
				if _, err := svc.Act(ctx, id, *cm.Action); err != nil {
					write(ctx, conn, errorMessage(err))
				}
			default:
				write(ctx, conn, types.ServerMessage{Type: "Error", Error: "unknown type"})
			}
		}
	}
}

// pump forwards snapshots until the outbox is closed, ctx ends or the feed
// stops. A feed that stops before handling Join never closes the outbox.
func pump(ctx context.Context, out <-chan feed.Snapshot, feedDone <-chan struct{}, deliver func(feed.Snapshot)) {
	for {
		select {
		case snap, ok := <-out:
			if !ok {
				return
			}
			deliver(snap)
		case <-feedDone:
			return
		case <-ctx.Done():
			return
		}
	}
}

func snapshotMessage(seq int, l engine.Lobby, now time.Time) types.ServerMessage {
	return types.ServerMessage{Type: "StateSnapshot", Seq: seq, Lobby: &l, Now: now.Unix()}
}

func errorMessage(err error) types.ServerMessage {
	body := game.ErrorBody(err)
	return types.ServerMessage{Type: "Error", Error: body.Error, MaxDepth: body.MaxDepth}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
