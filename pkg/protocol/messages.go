// Package protocol defines the wire JSON exchanged over the veto ceremony
// websocket. The lobby (lobby_id) and the observer flag (observer=true) are
// query parameters of the websocket URL, not frames. Client -> Server:
//
//	teamName:
//	  team_name: string
//	startPick / ban / pick / decider:
//	  team_name: string
//	  map: string, optional
//	  side: "t" | "ct", optional
//	modeBan / modePick:
//	  team_name: string
//	  mode: string
//	proposeWinner:
//	  team_name: string
//	  winner_team: string
//	confirmWinner:
//	  team_name: string
//	  confirmed: bool
//
// Server -> Client, one event type per frame: startWithoutCoin,
// pickedUpdated, bannedUpdated, deciderUpdated, modesUpdated, modePicked,
// canWorkUpdated followed by canBan / canPick / canModeBan / canModePick /
// canReportWinner, gameStateUpdated, teamNamesUpdated, winnerProposed,
// winnerConfirmed, winnerRejected, gameCompleted, roundStarted,
// backend.startPick, lobbyDeleted, lobbiesUpdated, backend.clear_obs,
// error.
package protocol

// ClientMessage is one inbound frame. Type selects which other fields are
// read; unused fields are left zero.
type ClientMessage struct {
	Type       string `json:"type"`
	LobbyID    string `json:"lobby_id,omitempty"`
	TeamName   string `json:"team_name,omitempty"`
	Map        string `json:"map,omitempty"`
	Side       string `json:"side,omitempty"`
	Mode       string `json:"mode,omitempty"`
	WinnerTeam string `json:"winner_team,omitempty"`
	Confirmed  bool   `json:"confirmed,omitempty"`
}

// ServerMessage is one outbound frame. Payload is whatever the originating
// engine.Event carried; dispatch marshals it as-is.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ErrorMessage is sent in place of a ServerMessage when an inbound frame is
// malformed or rejected before it reaches the engine (bad JSON, unknown
// type) — engine-level rejections (ErrWrongCapability etc.) are dropped
// silently, never echoed to the client.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewErrorMessage(msg string) ErrorMessage {
	return ErrorMessage{Type: "error", Error: msg}
}
