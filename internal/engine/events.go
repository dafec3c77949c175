package engine

// EventType enumerates the domain deltas Apply can produce. The dispatcher
// translates these into the wire event names clients subscribe to.
type EventType string

const (
	EvtCoinFlip          EventType = "coinFlip"
	EvtPickedUpdated     EventType = "pickedUpdated"
	EvtBannedUpdated     EventType = "bannedUpdated"
	EvtDeciderUpdated    EventType = "deciderUpdated"
	EvtModesUpdated      EventType = "modesUpdated"
	EvtModePicked        EventType = "modePicked"
	EvtCapability        EventType = "capability" // canWorkUpdated + specific capability, one connection
	EvtGameStateMessage  EventType = "gameStateMessage"
	EvtWinnerProposed    EventType = "winnerProposed"
	EvtWinnerConfirmed   EventType = "winnerConfirmed"
	EvtWinnerRejected    EventType = "winnerRejected"
	EvtGameCompleted     EventType = "gameCompleted"
	EvtRoundStarted      EventType = "roundStarted"
	EvtStartPickRequired EventType = "backendStartPick" // BO3/BO5: opponent must choose a side
	EvtObsCleared        EventType = "obsCleared"       // obs_views room only: no lobby is pinned anymore
	EvtTeamNamesUpdated  EventType = "teamNamesUpdated" // ordered team-name roster, not the localization ping
	EvtLobbyDeleted      EventType = "lobbyDeleted"
)

// Event is one domain delta produced by Apply. ConnID is empty for a
// lobby-wide broadcast and set for a message targeted at one connection
// (capability grants, winner proposals).
type Event struct {
	Type    EventType
	ConnID  string
	Payload interface{}
}

// CapabilityPayload is EvtCapability's payload: the full capability record
// for ConnID, so the dispatcher can emit canWorkUpdated before the specific
// canBan/canPick/... events it implies, in one place.
type CapabilityPayload struct {
	CanWork         bool
	CanBan          bool
	CanPick         bool
	CanModeBan      bool
	CanModePick     bool
	CanReportWinner bool
}

func capabilityPayload(c Capability) CapabilityPayload {
	return CapabilityPayload{
		CanWork:         c.Any(),
		CanBan:          c.CanBan,
		CanPick:         c.CanPick,
		CanModeBan:      c.CanModeBan,
		CanModePick:     c.CanModePick,
		CanReportWinner: c.CanReportWinner,
	}
}

// capabilityEvents emits one EvtCapability per current holder, reflecting
// l.Capabilities as it stands right now. Called once per Apply step, after
// all state mutation, so it is always consistent with the invariant "at
// most one connection holds a non-report capability at a time" (two may
// hold canReportWinner simultaneously).
func (l *Lobby) capabilityEvents() []Event {
	events := make([]Event, 0, len(l.Capabilities))
	for connID, cap := range l.Capabilities {
		events = append(events, Event{Type: EvtCapability, ConnID: connID, Payload: capabilityPayload(cap)})
	}
	return events
}

// GameStateMessagePayload carries a localization key plus args rather than
// a baked string, so the dispatcher can localize the message at broadcast
// time instead of baking one language into the engine.
type GameStateMessagePayload struct {
	Key  string
	Args map[string]string
}

func stateMessage(key string, args map[string]string) Event {
	return Event{Type: EvtGameStateMessage, Payload: GameStateMessagePayload{Key: key, Args: args}}
}

// TeamNamesDelta carries l's current ordered roster, the data-bearing
// companion to the "teamNamesUpdated" localization ping: a client renders
// the roster from this event alone, without waiting on a full snapshot.
// Called both from applyTeamName and from lobbyactor's leave path, which
// mutates Members/TeamNames directly rather than through Apply.
func TeamNamesDelta(l *Lobby) Event {
	return Event{Type: EvtTeamNamesUpdated, Payload: l.TeamNames.Names()}
}

// SnapshotEvents reconstructs the sequence of domain deltas that reproduces
// l's current picked/banned state, for a room that is joined mid-ceremony
// rather than live for every step (the obs overlay feed when it is pinned
// to a lobby that already has history).
func SnapshotEvents(l *Lobby) []Event {
	var events []Event
	for _, b := range l.BannedModes {
		events = append(events, Event{Type: EvtModesUpdated, Payload: b})
	}
	if l.PickedMode != "" {
		events = append(events, Event{Type: EvtModePicked, Payload: l.PickedMode})
	}
	for _, b := range l.BannedMaps {
		events = append(events, Event{Type: EvtBannedUpdated, Payload: b})
	}
	for _, p := range l.PickedMaps {
		events = append(events, Event{Type: EvtPickedUpdated, Payload: p})
	}
	if l.DeciderMap != nil {
		events = append(events, Event{Type: EvtDeciderUpdated, Payload: *l.DeciderMap})
	}
	return events
}
