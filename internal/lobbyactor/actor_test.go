package lobbyactor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/veto-ceremony/server/internal/engine"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []engine.Event
}

func (p *recordingPublisher) Publish(lobbyID string, events []engine.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newTestLobby(t *testing.T) *engine.Lobby {
	t.Helper()
	l, err := engine.NewFPSLobby("L1", engine.BO1, []string{"a", "b", "c", "d"}, false, false, false)
	if err != nil {
		t.Fatalf("NewFPSLobby: %v", err)
	}
	return l
}

func TestActorJoinAndApply(t *testing.T) {
	pub := &recordingPublisher{}
	l := newTestLobby(t)
	a := New(context.Background(), l, pub)
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := a.Join(ctx, "connA"); err != nil {
		t.Fatalf("join connA: %v", err)
	}
	if err := a.Join(ctx, "connB"); err != nil {
		t.Fatalf("join connB: %v", err)
	}
	if err := a.Join(ctx, "connC"); err != engine.ErrLobbyFull {
		t.Fatalf("want ErrLobbyFull for a third join, got %v", err)
	}

	a.Apply(engine.Action{Type: engine.ActionTeamName, ConnID: "connA", TeamName: "A"})
	a.Apply(engine.Action{Type: engine.ActionTeamName, ConnID: "connB", TeamName: "B"})

	deadline := time.After(time.Second)
	for {
		snap, err := a.Snapshot(ctx)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.Started {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("ceremony never started")
		case <-time.After(time.Millisecond):
		}
	}

	status, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Empty {
		t.Fatalf("want the lobby to be non-empty with two joined members")
	}
	if status.Admin {
		t.Fatalf("want this lobby to not be admin-owned")
	}
}

func TestActorStatusReportsEmpty(t *testing.T) {
	pub := &recordingPublisher{}
	l := newTestLobby(t)
	a := New(context.Background(), l, pub)
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	status, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Empty {
		t.Fatalf("want a freshly-created lobby to be empty")
	}
}

func TestActorLeaveClearsMembership(t *testing.T) {
	pub := &recordingPublisher{}
	l := newTestLobby(t)
	a := New(context.Background(), l, pub)
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := a.Join(ctx, "connA"); err != nil {
		t.Fatalf("join: %v", err)
	}
	a.Leave("connA")

	deadline := time.After(time.Second)
	for {
		status, err := a.Status(ctx)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if status.Empty {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("leave never took effect")
		case <-time.After(time.Millisecond):
		}
	}
}
