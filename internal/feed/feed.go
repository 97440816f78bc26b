package feed

import (
	"context"
	"time"

	"github.com/3bbing/friends-pyramid/internal/engine"
)

type Msg interface{ isFeedMsg() }

// Publish hands a freshly written lobby record to the feed.
type Publish struct {
	Lobby      engine.Lobby
	ServerTime time.Time
}

func (Publish) isFeedMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isFeedMsg() {}

type Leave struct{ ClientID string }

func (Leave) isFeedMsg() {}

type Shutdown struct{}

func (Shutdown) isFeedMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isFeedMsg() {}

type Snapshot struct {
	Seq        int
	Lobby      engine.Lobby
	ServerTime time.Time
}

type View struct {
	Seq        int
	NumClients int
	Last       *Snapshot
}

// Feed fans lobby snapshots out to the connected clients of one team. It
// owns no game state; the store stays the source of truth.
type Feed struct {
	inbox   chan Msg
	last    *Snapshot
	seq     int
	clients map[string]chan Snapshot
	onIdle  func(*Feed)
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewFeed starts the feed. onIdle, if set, is called from its own goroutine
// each time the last client goes away.
func NewFeed(parent context.Context, onIdle func(*Feed)) *Feed {
	ctx, cancel := context.WithCancel(parent)

	f := &Feed{
		inbox:   make(chan Msg, 64), // Small buffer
		clients: make(map[string]chan Snapshot),
		onIdle:  onIdle,
		ctx:     ctx,
		cancel:  cancel,
	}

	go f.loop()
	return f
}

func (f *Feed) loop() {
	for {
		select {
		case <-f.ctx.Done():
			f.shutdown()
			return

		case m := <-f.inbox:
			switch msg := m.(type) {
			case Join:
				f.clients[msg.ClientID] = msg.Outbox
				if f.last != nil {
					f.send(msg.ClientID, msg.Outbox, *f.last)
				}

			case Leave:
				if ch, ok := f.clients[msg.ClientID]; ok {
					close(ch)
					delete(f.clients, msg.ClientID)
					f.checkIdle()
				}

			case Publish:
				// Publishers race once the lobby lock is released.
				if f.last != nil && msg.Lobby.Version <= f.last.Lobby.Version {
					break
				}
				f.seq++
				snap := Snapshot{Seq: f.seq, Lobby: msg.Lobby, ServerTime: msg.ServerTime}
				f.last = &snap
				f.broadcast(snap)

			case GetState:
				msg.Reply <- View{
					Seq:        f.seq,
					NumClients: len(f.clients),
					Last:       f.last,
				}

			case Shutdown:
				f.shutdown()
				return
			}
		}
	}
}

func (f *Feed) shutdown() {
	for id, ch := range f.clients {
		close(ch) // Tell client no more snapshots
		delete(f.clients, id)
	}
	f.cancel()
}

func (f *Feed) broadcast(snap Snapshot) {
	for id, ch := range f.clients {
		f.send(id, ch, snap)
	}
}

// send drops a client whose outbox is full.
func (f *Feed) send(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
	default:
		close(ch)
		delete(f.clients, id)
		f.checkIdle()
	}
}

func (f *Feed) checkIdle() {
	if len(f.clients) == 0 && f.onIdle != nil {
		go f.onIdle(f)
	}
}

// Inbox exposes the feed's mailbox to the hub, the service and tests.
func (f *Feed) Inbox() chan<- Msg { return f.inbox }

// Done is closed once the feed has stopped.
func (f *Feed) Done() <-chan struct{} { return f.ctx.Done() }

// Send delivers m unless the feed has stopped.
func (f *Feed) Send(m Msg) bool {
	select {
	case f.inbox <- m:
		return true
	case <-f.ctx.Done():
		return false
	}
}
