// Package dispatch is the only place that knows both engine's vocabulary
// and the wire protocol's. It turns inbound protocol.ClientMessage frames
// into engine.Action values, and implements lobbyactor.Publisher to turn
// outbound engine.Event values back into protocol.ServerMessage frames
// delivered through internal/bus.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/veto-ceremony/server/internal/bus"
	"github.com/veto-ceremony/server/internal/catalog"
	"github.com/veto-ceremony/server/internal/engine"
	"github.com/veto-ceremony/server/pkg/protocol"
)

// Service implements lobbyactor.Publisher.
type Service struct {
	bus *bus.Bus
	log *zap.Logger
}

func New(b *bus.Bus, log *zap.Logger) *Service {
	return &Service{bus: b, log: log}
}

// Publish fans engine.Event values out to the wire. A zero ConnID means a
// lobby-wide broadcast (sent to both the participant and observer rooms);
// a set ConnID targets one connection only — used for capability grants
// and the opposite-team winnerProposed notification.
func (s *Service) Publish(lobbyID string, events []engine.Event) {
	for _, e := range events {
		for _, m := range expandEvent(e) {
			payload, err := json.Marshal(m.sm)
			if err != nil {
				s.log.Warn("dropping unmarshalable event", zap.String("lobby", lobbyID), zap.String("type", m.sm.Type), zap.Error(err))
				continue
			}
			if m.connID != "" {
				s.bus.Send(m.connID, payload)
				continue
			}
			s.bus.Broadcast(bus.ParticipantRoom(lobbyID), payload)
			s.bus.Broadcast(bus.ObserverRoom(lobbyID), payload)
		}
	}
}

// PublishLobbiesUpdated tells every connection watching the process-wide
// lobby list that it changed — a lobby was created, deleted, or emptied
// out by its last member leaving. Unlike Publish this isn't scoped to one
// lobby's rooms: it goes to the dedicated lobby-list room.
func (s *Service) PublishLobbiesUpdated(lobbyIDs []string) {
	payload, err := json.Marshal(protocol.ServerMessage{Type: "lobbiesUpdated", Payload: lobbyIDs})
	if err != nil {
		s.log.Warn("dropping unmarshalable lobbiesUpdated", zap.Error(err))
		return
	}
	s.bus.Broadcast(bus.LobbyListRoom(), payload)
}

// wireMessage is one frame ready to go out, after expandEvent has resolved
// which wire type name(s) an engine.Event maps to.
type wireMessage struct {
	connID string
	sm     protocol.ServerMessage
}

// wireType maps an engine.EventType onto the wire-level name clients
// subscribe to. Most event types are already named for the wire; a few
// diverge from their internal name, and EvtCapability doesn't go through
// this at all (expandEvent splits it into several frames instead).
func wireType(t engine.EventType) string {
	switch t {
	case engine.EvtGameStateMessage:
		return "gameStateUpdated"
	case engine.EvtStartPickRequired:
		return "backend.startPick"
	case engine.EvtCoinFlip:
		return "startWithoutCoin"
	case engine.EvtObsCleared:
		return "backend.clear_obs"
	default:
		return string(t)
	}
}

// expandEvent resolves one engine.Event into the wire frame(s) it produces.
// EvtCapability expands into canWorkUpdated first, then one frame per
// capability bit currently held — the capability-ordering guarantee
// depends on canWorkUpdated always preceding the specific bit it implies,
// and on Publish preserving slice order across that expansion.
func expandEvent(e engine.Event) []wireMessage {
	if e.Type == engine.EvtCapability {
		payload, ok := e.Payload.(engine.CapabilityPayload)
		if !ok {
			return nil
		}
		msgs := []wireMessage{{connID: e.ConnID, sm: protocol.ServerMessage{Type: "canWorkUpdated", Payload: payload.CanWork}}}
		add := func(name string, held bool) {
			if held {
				msgs = append(msgs, wireMessage{connID: e.ConnID, sm: protocol.ServerMessage{Type: name, Payload: held}})
			}
		}
		add("canBan", payload.CanBan)
		add("canPick", payload.CanPick)
		add("canModeBan", payload.CanModeBan)
		add("canModePick", payload.CanModePick)
		add("canReportWinner", payload.CanReportWinner)
		return msgs
	}
	return []wireMessage{{connID: e.ConnID, sm: protocol.ServerMessage{Type: wireType(e.Type), Payload: e.Payload}}}
}

// PublishObsSnapshot pins the obs_views room to lobbyID's current state: it
// replays the banned/picked history l carries so far into that room alone,
// as if the room had been live since the ceremony started. Called when the
// admin surface re-targets the overlay feed at a different lobby.
func (s *Service) PublishObsSnapshot(lobbyID string, l *engine.Lobby) {
	s.publishToRoom(bus.ObserverRoom(lobbyID), engine.SnapshotEvents(l))
}

// PublishObsClear tells lobbyID's obs_views room that no lobby is pinned to
// it anymore.
func (s *Service) PublishObsClear(lobbyID string) {
	s.publishToRoom(bus.ObserverRoom(lobbyID), []engine.Event{{Type: engine.EvtObsCleared}})
}

func (s *Service) publishToRoom(room bus.Room, events []engine.Event) {
	for _, e := range events {
		payload, err := json.Marshal(protocol.ServerMessage{Type: wireType(e.Type), Payload: e.Payload})
		if err != nil {
			s.log.Warn("dropping unmarshalable event", zap.String("room", string(room)), zap.String("type", string(e.Type)), zap.Error(err))
			continue
		}
		s.bus.Broadcast(room, payload)
	}
}

// DecodeAction maps one inbound frame to an engine.Action. connID comes
// from the transport session, never from the frame body, so a client can
// never act as a connection it doesn't own — the impersonation defense
// starts here. reportWinner and proposeWinner are wire synonyms for the
// same two-phase-commit proposal step.
func DecodeAction(connID string, cm protocol.ClientMessage) (engine.Action, bool) {
	switch cm.Type {
	case "teamName":
		return engine.Action{Type: engine.ActionTeamName, ConnID: connID, TeamName: cm.TeamName}, true
	case "startPick":
		return engine.Action{Type: engine.ActionStartPick, ConnID: connID, TeamName: cm.TeamName, Map: cm.Map}, true
	case "ban":
		return engine.Action{Type: engine.ActionBan, ConnID: connID, TeamName: cm.TeamName, Map: cm.Map}, true
	case "pick":
		return engine.Action{Type: engine.ActionPick, ConnID: connID, TeamName: cm.TeamName, Map: cm.Map, Side: cm.Side}, true
	case "decider":
		return engine.Action{Type: engine.ActionDecider, ConnID: connID, TeamName: cm.TeamName, Map: cm.Map, Side: cm.Side}, true
	case "modeBan":
		return engine.Action{Type: engine.ActionModeBan, ConnID: connID, TeamName: cm.TeamName, Mode: cm.Mode}, true
	case "modePick":
		return engine.Action{Type: engine.ActionModePick, ConnID: connID, TeamName: cm.TeamName, Mode: cm.Mode}, true
	case "proposeWinner", "reportWinner":
		return engine.Action{Type: engine.ActionProposeWinner, ConnID: connID, TeamName: cm.TeamName, WinnerTeam: cm.WinnerTeam}, true
	case "confirmWinner":
		return engine.Action{Type: engine.ActionConfirmWinner, ConnID: connID, TeamName: cm.TeamName, Confirmed: cm.Confirmed}, true
	default:
		return engine.Action{}, false
	}
}

// The obs overlay and a late-joining viewer both need answers that don't
// mutate any lobby state — they're plain reads against the current
// snapshot, answered directly to the asking connection rather than
// broadcast or routed through engine.Apply.
const (
	QueryObsPatternList       = "obs.getPatternList"
	QueryObsCurrentPickedMode = "obs.getCurrentPickedMode"
	QueryLobbyGameCategory    = "getLobbyGameCategory"
	QueryJoinObsView          = "joinObsView"
)

var errUnknownQuery = errors.New("dispatch: unknown query type")

// IsQuery reports whether cm.Type names one of the read-only queries
// resolved by Query rather than by DecodeAction/Apply.
func IsQuery(cm protocol.ClientMessage) bool {
	switch cm.Type {
	case QueryObsPatternList, QueryObsCurrentPickedMode, QueryLobbyGameCategory, QueryJoinObsView:
		return true
	default:
		return false
	}
}

type patternListResponse struct {
	ModesRules []catalog.PatternToken `json:"modes_rules,omitempty"`
	MapsRules  []catalog.PatternToken `json:"maps_rules"`
}

type currentPickedModeResponse struct {
	Mode        string `json:"mode"`
	DisplayName string `json:"displayName"`
}

type lobbyGameCategoryResponse struct {
	GameFamily string `json:"game_family"`
	GameType   string `json:"game_type,omitempty"`
}

// obsViewResponse is joinObsView's reply: the full picked/banned history so
// far, the same shape PublishObsSnapshot replays into the obs room, handed
// back directly to a connection that asks for it in-band instead of
// reconnecting with ?observer=true.
type obsViewResponse struct {
	GameFamily  string                `json:"game_family"`
	PickedMode  string                `json:"picked_mode,omitempty"`
	PickedMaps  []engine.MapEntry     `json:"picked_maps"`
	BannedMaps  []engine.BanEntry     `json:"banned_maps"`
	BannedModes []engine.ModeBanEntry `json:"banned_modes,omitempty"`
}

// lobbySnapshotter is the subset of *lobbyactor.Actor Query needs; named
// here so dispatch doesn't import lobbyactor just for one parameter type.
type lobbySnapshotter interface {
	Snapshot(ctx context.Context) (*engine.Lobby, error)
}

// Query resolves one of IsQuery's message types against a's current
// snapshot and returns the response frame to write back to the requesting
// connection alone. The reply types are patternList, currentPickedMode,
// lobbyGameCategory and, for joinObsView, joinObsView.
func Query(ctx context.Context, a lobbySnapshotter, queryType string) (protocol.ServerMessage, error) {
	l, err := a.Snapshot(ctx)
	if err != nil {
		return protocol.ServerMessage{}, err
	}

	switch queryType {
	case QueryObsPatternList:
		return protocol.ServerMessage{Type: "patternList", Payload: patternListResponse{
			ModesRules: l.RoundModesRules,
			MapsRules:  l.RoundMapsRules,
		}}, nil
	case QueryObsCurrentPickedMode:
		return protocol.ServerMessage{Type: "currentPickedMode", Payload: currentPickedModeResponse{
			Mode:        l.PickedMode,
			DisplayName: catalog.ModeTranslation(l.PickedMode),
		}}, nil
	case QueryLobbyGameCategory:
		return protocol.ServerMessage{Type: "lobbyGameCategory", Payload: lobbyGameCategoryResponse{
			GameFamily: string(l.GameFamily),
			GameType:   string(l.Rules.GameType),
		}}, nil
	case QueryJoinObsView:
		return protocol.ServerMessage{Type: queryType, Payload: obsViewResponse{
			GameFamily:  string(l.GameFamily),
			PickedMode:  l.PickedMode,
			PickedMaps:  l.PickedMaps,
			BannedMaps:  l.BannedMaps,
			BannedModes: l.BannedModes,
		}}, nil
	default:
		return protocol.ServerMessage{}, errUnknownQuery
	}
}
