// Package ws is the concrete websocket transport: the only package that
// imports github.com/coder/websocket. It registers each connection with
// internal/bus and pumps frames in both directions, addressed by lobby ID
// into participant or observer rooms.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veto-ceremony/server/internal/bus"
	"github.com/veto-ceremony/server/internal/dispatch"
	"github.com/veto-ceremony/server/internal/engine"
	"github.com/veto-ceremony/server/internal/store"
	"github.com/veto-ceremony/server/pkg/protocol"
)

type Handler struct {
	store         *store.Store
	bus           *bus.Bus
	log           *zap.Logger
	acceptOptions *websocket.AcceptOptions
}

func NewHandler(st *store.Store, b *bus.Bus, log *zap.Logger, devOriginWide bool) *Handler {
	opts := &websocket.AcceptOptions{}
	if devOriginWide {
		opts.OriginPatterns = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	return &Handler{store: st, bus: b, log: log, acceptOptions: opts}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lobbyID := r.URL.Query().Get("lobby_id")
	if lobbyID == "" {
		http.Error(w, "missing lobby_id", http.StatusBadRequest)
		return
	}
	a, ok := h.store.Get(lobbyID)
	if !ok {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}
	observer := r.URL.Query().Get("observer") == "true"

	conn, err := websocket.Accept(w, r, h.acceptOptions)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	connID := uuid.NewString()
	room := bus.ParticipantRoom(lobbyID)
	if observer {
		room = bus.ObserverRoom(lobbyID)
		a.JoinObserver(connID)
	} else if err := a.Join(r.Context(), connID); err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}

	out := make(chan []byte, 16)
	h.bus.Join(room, connID, out)
	defer func() {
		h.bus.Leave("", connID)
		if observer {
			a.LeaveObserver(connID)
		} else {
			a.Leave(connID)
		}
	}()

	writeCtx, writeCancel := context.WithCancel(r.Context())
	defer writeCancel()
	go h.writeLoop(writeCtx, conn, out)

	h.readLoop(r.Context(), conn, a, connID)
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-out:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			_ = conn.Write(wctx, websocket.MessageText, payload)
			cancel()
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, a actor, connID string) {
	for {
		rctx, cancel := context.WithTimeout(ctx, 60*time.Second)
		_, data, err := conn.Read(rctx)
		cancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			default:
				return
			}
		}

		var cm protocol.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			h.writeError(ctx, conn, "bad json")
			continue
		}

		if dispatch.IsQuery(cm) {
			resp, err := dispatch.Query(ctx, a, cm.Type)
			if err != nil {
				h.writeError(ctx, conn, err.Error())
				continue
			}
			h.writeMessage(ctx, conn, resp)
			continue
		}

		action, ok := dispatch.DecodeAction(connID, cm)
		if !ok {
			h.writeError(ctx, conn, "unknown message type")
			continue
		}
		a.Apply(action)
	}
}

func (h *Handler) writeMessage(ctx context.Context, conn *websocket.Conn, msg protocol.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

func (h *Handler) writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(protocol.NewErrorMessage(msg))
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

// actor is the subset of *lobbyactor.Actor the read loop needs; named here
// so this file doesn't import lobbyactor just for one parameter type.
type actor interface {
	Apply(action engine.Action)
	Snapshot(ctx context.Context) (*engine.Lobby, error)
}
