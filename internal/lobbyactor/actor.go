// Package lobbyactor wraps one engine.Lobby in a single-goroutine,
// channel-inbox actor: the Lobby is mutated exclusively by the actor's own
// loop, never touched from any other goroutine.
package lobbyactor

import (
	"context"

	"github.com/veto-ceremony/server/internal/engine"
)

type Msg interface{ isMsg() }

// JoinMsg adds a connection as a team member (or, past capacity, rejects
// it). Reply always receives exactly one JoinResult.
type JoinMsg struct {
	ConnID string
	Reply  chan JoinResult
}

func (JoinMsg) isMsg() {}

type JoinResult struct {
	Err error
}

// LeaveMsg removes a connection. Reconnection mid-ceremony is out of scope;
// a leaving member simply stops holding any capability it held, which the
// dispatcher surfaces as a stalled ceremony.
type LeaveMsg struct{ ConnID string }

func (LeaveMsg) isMsg() {}

// JoinObserverMsg registers a connection as an observer rather than a team
// member: unlike JoinMsg it never rejects (there is no capacity limit on
// observers) and carries no reply.
type JoinObserverMsg struct{ ConnID string }

func (JoinObserverMsg) isMsg() {}

// LeaveObserverMsg removes a connection from the observer set.
type LeaveObserverMsg struct{ ConnID string }

func (LeaveObserverMsg) isMsg() {}

// StartMsg asks the actor to begin the ceremony immediately, bypassing the
// normal "both team names bound" trigger — used by the admin surface for
// admin-controlled lobbies that can be started with fewer than two teams.
type StartMsg struct{ Reply chan StartResult }

func (StartMsg) isMsg() {}

type StartResult struct{ Err error }

// EmptyHandler is invoked once, synchronously on the actor's own goroutine,
// the moment a non-admin lobby's last member disconnects. The receiver
// owns removing the lobby from any registry and broadcasting the
// resulting lobbiesUpdated delta — lobbyactor holds no registry reference
// itself, to avoid an import cycle with internal/store, which already
// imports lobbyactor to hold *Actor values.
type EmptyHandler func(lobbyID string)

// ActionMsg is one already-resolved engine.Action.
type ActionMsg struct{ Action engine.Action }

func (ActionMsg) isMsg() {}

// SnapshotMsg requests a read-only view of the lobby, used when a new
// connection (participant or observer) needs the full current state rather
// than only the delta stream. The reply is a deep copy built on the
// actor's own goroutine (see engine.Lobby.Clone) so the caller can read it
// on any other goroutine without racing the actor's next mutation.
type SnapshotMsg struct{ Reply chan *engine.Lobby }

func (SnapshotMsg) isMsg() {}

type ShutdownMsg struct{}

func (ShutdownMsg) isMsg() {}

// StatusMsg asks the actor to report whether it currently holds any
// connections and whether it is admin-owned, without handing out the
// lobby pointer itself.
type StatusMsg struct{ Reply chan Status }

func (StatusMsg) isMsg() {}

type Status struct {
	Empty bool
	Admin bool
}

// Publisher is how an Actor hands domain events to the outside world. The
// concrete implementation (internal/dispatch) translates engine.Event into
// wire JSON and pushes it through internal/bus; lobbyactor never imports
// either.
type Publisher interface {
	Publish(lobbyID string, events []engine.Event)
}

// Actor owns one *engine.Lobby exclusively.
type Actor struct {
	id      string
	lobby   *engine.Lobby
	inbox   chan Msg
	pub     Publisher
	onEmpty EmptyHandler
	cancel  context.CancelFunc
	done    chan struct{}
}

// SetEmptyHandler wires the callback invoked when this lobby's last member
// leaves while it is non-admin. Must be called before the actor receives
// any LeaveMsg — internal/admin wires it immediately after lobbyactor.New,
// before the actor is registered with the store.
func (a *Actor) SetEmptyHandler(f EmptyHandler) {
	a.onEmpty = f
}

func New(parent context.Context, l *engine.Lobby, pub Publisher) *Actor {
	ctx, cancel := context.WithCancel(parent)
	a := &Actor{
		id:     l.ID,
		lobby:  l,
		inbox:  make(chan Msg, 64),
		pub:    pub,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go a.loop(ctx)
	return a
}

func (a *Actor) ID() string        { return a.id }
func (a *Actor) Inbox() chan<- Msg { return a.inbox }

// Done closes once the actor's loop has returned. Neither Shutdown's
// callers (admin, reaper) nor the store wait on it.
func (a *Actor) Done() <-chan struct{} { return a.done }

func (a *Actor) loop(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-a.inbox:
			switch msg := m.(type) {
			case JoinMsg:
				a.handleJoin(msg)
			case LeaveMsg:
				a.handleLeave(msg)
			case JoinObserverMsg:
				a.lobby.Observers[msg.ConnID] = true
			case LeaveObserverMsg:
				delete(a.lobby.Observers, msg.ConnID)
			case ActionMsg:
				a.handleAction(msg)
			case StartMsg:
				a.handleStart(msg)
			case SnapshotMsg:
				msg.Reply <- a.lobby.Clone()
			case StatusMsg:
				msg.Reply <- Status{
					Empty: len(a.lobby.Members) == 0 && len(a.lobby.Observers) == 0,
					Admin: a.lobby.Rules.Admin,
				}
			case ShutdownMsg:
				a.cancel()
				return
			}
		}
	}
}

func (a *Actor) handleJoin(msg JoinMsg) {
	for _, c := range a.lobby.Members {
		if c == msg.ConnID {
			msg.Reply <- JoinResult{}
			return
		}
	}
	if len(a.lobby.Members) >= 2 {
		msg.Reply <- JoinResult{Err: engine.ErrLobbyFull}
		return
	}
	a.lobby.Members = append(a.lobby.Members, msg.ConnID)
	msg.Reply <- JoinResult{}
}

func (a *Actor) handleLeave(msg LeaveMsg) {
	out := a.lobby.Members[:0]
	for _, c := range a.lobby.Members {
		if c != msg.ConnID {
			out = append(out, c)
		}
	}
	a.lobby.Members = out
	a.lobby.TeamNames.Remove(msg.ConnID)
	delete(a.lobby.Observers, msg.ConnID)
	delete(a.lobby.Capabilities, msg.ConnID)

	a.pub.Publish(a.lobby.ID, []engine.Event{engine.TeamNamesDelta(a.lobby)})

	if len(a.lobby.Members) == 0 && !a.lobby.Rules.Admin && a.onEmpty != nil {
		a.onEmpty(a.lobby.ID)
	}
}

func (a *Actor) handleStart(msg StartMsg) {
	events, err := engine.StartGame(a.lobby)
	if err == nil && len(events) > 0 {
		a.pub.Publish(a.lobby.ID, events)
	}
	msg.Reply <- StartResult{Err: err}
}

func (a *Actor) handleAction(msg ActionMsg) {
	events, err := engine.Apply(a.lobby, msg.Action)
	if err != nil {
		// Authorization and sanitization rejections are dropped silently;
		// the lobby's state is left untouched because Apply never mutates
		// on a non-nil error.
		return
	}
	if len(events) > 0 {
		a.pub.Publish(a.lobby.ID, events)
	}
}

// Status blocks until the actor reports its current occupancy, for the
// reaper's empty-lobby sweep (admin-owned lobbies are exempt).
func (a *Actor) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	select {
	case a.inbox <- StatusMsg{Reply: reply}:
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Join blocks until the actor has registered connID as a member (or
// rejected it).
func (a *Actor) Join(ctx context.Context, connID string) error {
	reply := make(chan JoinResult, 1)
	select {
	case a.inbox <- JoinMsg{ConnID: connID, Reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case r := <-reply:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave is fire-and-forget: the caller (a closing websocket connection)
// doesn't need to wait for it to apply.
func (a *Actor) Leave(connID string) {
	select {
	case a.inbox <- LeaveMsg{ConnID: connID}:
	default:
	}
}

// JoinObserver and LeaveObserver are fire-and-forget, same reasoning as
// Leave: an observer connection joining or dropping never needs to block
// the caller on the actor's own goroutine.
func (a *Actor) JoinObserver(connID string) {
	select {
	case a.inbox <- JoinObserverMsg{ConnID: connID}:
	default:
	}
}

func (a *Actor) LeaveObserver(connID string) {
	select {
	case a.inbox <- LeaveObserverMsg{ConnID: connID}:
	default:
	}
}

// Start blocks until the actor has begun the ceremony (or rejected the
// attempt — already started, or not enough members on a non-admin lobby).
func (a *Actor) Start(ctx context.Context) error {
	reply := make(chan StartResult, 1)
	select {
	case a.inbox <- StartMsg{Reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case r := <-reply:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply is fire-and-forget: the resulting events (if any) reach the
// connection asynchronously through Publisher.
func (a *Actor) Apply(action engine.Action) {
	select {
	case a.inbox <- ActionMsg{Action: action}:
	default:
	}
}

// Snapshot blocks until the actor hands back a deep copy of its current
// lobby state — see SnapshotMsg. Safe to read freely from the calling
// goroutine; it shares no memory with the actor's live *engine.Lobby.
func (a *Actor) Snapshot(ctx context.Context) (*engine.Lobby, error) {
	reply := make(chan *engine.Lobby, 1)
	select {
	case a.inbox <- SnapshotMsg{Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case l := <-reply:
		return l, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown requests the actor's loop to stop. It does not block.
func (a *Actor) Shutdown() {
	select {
	case a.inbox <- ShutdownMsg{}:
	default:
	}
}
