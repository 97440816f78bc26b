package hub

import (
	"context"

	"github.com/3bbing/friends-pyramid/internal/feed"
)

type HubMsg interface{ isHubMsg() }

type GetFeed struct {
	TeamID string
	Reply  chan *feed.Feed
}

type EnsureFeed struct {
	TeamID string
	Reply  chan *feed.Feed
}

// RemoveFeed stops the team's feed. With Feed set it only removes that feed,
// and only while it has no clients.
type RemoveFeed struct {
	TeamID string
	Feed   *feed.Feed
}

type ShutdownHub struct{}

// Hub owns one snapshot feed per team that has connected clients.
type Hub struct {
	inbox  chan HubMsg
	feeds  map[string]*feed.Feed
	ctx    context.Context
	cancel context.CancelFunc
}

func (GetFeed) isHubMsg()     {}
func (EnsureFeed) isHubMsg()  {}
func (RemoveFeed) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		feeds:  make(map[string]*feed.Feed),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetFeed:
				msg.Reply <- h.feeds[msg.TeamID] // May be nil

			case EnsureFeed:
				if f := h.feeds[msg.TeamID]; f != nil {
					msg.Reply <- f
					break
				}
				teamID := msg.TeamID
				f := feed.NewFeed(h.ctx, func(f *feed.Feed) { h.removeIdle(teamID, f) })
				h.feeds[msg.TeamID] = f
				msg.Reply <- f

			case RemoveFeed:
				f := h.feeds[msg.TeamID]
				if f == nil || (msg.Feed != nil && (msg.Feed != f || !isIdle(f))) {
					break
				}
				f.Send(feed.Shutdown{})
				delete(h.feeds, msg.TeamID)

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, f := range h.feeds {
		f.Send(feed.Shutdown{})
	}
	clear(h.feeds)
}

// removeIdle is the feeds' idle callback.
func (h *Hub) removeIdle(teamID string, f *feed.Feed) {
	select {
	case h.inbox <- RemoveFeed{TeamID: teamID, Feed: f}:
	case <-h.ctx.Done():
	}
}

// isIdle asks the feed itself, since a client may have joined after the
// idle report was sent.
func isIdle(f *feed.Feed) bool {
	reply := make(chan feed.View, 1)
	if !f.Send(feed.GetState{Reply: reply}) {
		return true
	}
	select {
	case v := <-reply:
		return v.NumClients == 0
	case <-f.Done():
		return true
	}
}

// Feed returns the team's feed, or nil if nobody has subscribed yet.
func (h *Hub) Feed(teamID string) *feed.Feed {
	reply := make(chan *feed.Feed, 1)
	select {
	case h.inbox <- GetFeed{TeamID: teamID, Reply: reply}:
	case <-h.ctx.Done():
		return nil
	}
	select {
	case f := <-reply:
		return f
	case <-h.ctx.Done():
		return nil
	}
}

// Ensure returns the team's feed, creating it on demand.
func (h *Hub) Ensure(teamID string) *feed.Feed {
	reply := make(chan *feed.Feed, 1)
	select {
	case h.inbox <- EnsureFeed{TeamID: teamID, Reply: reply}:
	case <-h.ctx.Done():
		return nil
	}
	select {
	case f := <-reply:
		return f
	case <-h.ctx.Done():
		return nil
	}
}
