package engine

import (
	"strings"
	"time"
)

// ActionType enumerates the inbound team actions the controller accepts.
// Connection-management (join/leave) and admin actions are handled outside
// Apply, by internal/lobbyactor and internal/admin respectively.
type ActionType string

const (
	ActionTeamName      ActionType = "teamName"
	ActionStartPick     ActionType = "startPick" // BO3/BO5 only
	ActionBan           ActionType = "ban"
	ActionPick          ActionType = "pick"
	ActionDecider       ActionType = "decider" // non-knife manual decider pick
	ActionModeBan       ActionType = "modeBan"
	ActionModePick      ActionType = "modePick"
	ActionProposeWinner ActionType = "proposeWinner"
	ActionConfirmWinner ActionType = "confirmWinner"
)

// Action is one inbound team command, already resolved to a connection ID
// by the dispatcher (never trusted blindly — TeamName is re-validated
// against TeamNames in the common preflight below).
type Action struct {
	Type       ActionType
	ConnID     string
	TeamName   string
	Map        string
	Side       string
	Mode       string
	WinnerTeam string
	Confirmed  bool
}

// NewFPSLobby seeds a fresh FPS Lobby. mapNames must already be the
// defensively-copied catalog pool (internal/catalog owns that copy).
func NewFPSLobby(id string, gameType FPSGameType, mapNames []string, knifeDecider, coinFlip, admin bool) (*Lobby, error) {
	if err := validateFPSConfig(gameType, mapNames); err != nil {
		return nil, err
	}
	l := &Lobby{
		ID:         id,
		GameFamily: FamilyFPS,
		CreatedAt:  now(),
		Observers:  make(map[string]bool),
		TeamNames:  NewOrderedTeamNames(),
		Rules: Rules{
			GameType:     gameType,
			Admin:        admin,
			CoinFlip:     coinFlip,
			KnifeDecider: knifeDecider,
			MapNames:     append([]string(nil), mapNames...),
		},
		GameStep:     7 - len(mapNames),
		Capabilities: make(map[string]Capability),
	}
	return l, nil
}

func validateFPSConfig(gameType FPSGameType, mapNames []string) error {
	switch gameType {
	case BO3, BO5:
		if len(mapNames) != 7 {
			return ErrBadConfig
		}
	case BO1:
		if len(mapNames) != 4 && len(mapNames) != 7 {
			return ErrBadConfig
		}
	default:
		return ErrBadConfig
	}
	return nil
}

// NewSplatoonLobby seeds a fresh Splatoon Lobby. mapNames is loaded once a
// mode is picked; at creation time no mode is chosen, so Rules.MapNames
// starts empty and the first round begins in the mode-ban phase (4-mode)
// or, for 2-mode, directly in the map-ban phase with the round's mode
// assigned by round parity.
func NewSplatoonLobby(id string, modesSize int, activeModes []string, coinFlip, admin bool) (*Lobby, error) {
	if modesSize != 2 && modesSize != 4 {
		return nil, ErrBadConfig
	}
	if modesSize == 2 && len(activeModes) != 2 {
		return nil, ErrBadConfig
	}
	if modesSize == 4 && len(activeModes) != 4 {
		return nil, ErrBadConfig
	}
	l := &Lobby{
		ID:         id,
		GameFamily: FamilySplatoon,
		CreatedAt:  now(),
		Observers:  make(map[string]bool),
		TeamNames:  NewOrderedTeamNames(),
		Rules: Rules{
			Admin:       admin,
			CoinFlip:    coinFlip,
			ActiveModes: append([]string(nil), activeModes...),
			ModesSize:   modesSize,
			RoundNumber: 1,
		},
		Capabilities: make(map[string]Capability),
	}
	return l, nil
}

// now is a seam so tests could pin CreatedAt; kept trivial otherwise.
var now = time.Now

// SanitizeTeamName applies ingress sanitization to a raw team name: strip
// control characters, trim, cap length, reject empty.
func SanitizeTeamName(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		return "", false
	}
	const maxLen = 32
	if len(name) > maxLen {
		name = name[:maxLen]
	}
	return name, true
}

// Apply validates and applies one team action against l, mutating it in
// place (l is exclusively owned by the calling lobbyactor goroutine). It
// returns the domain events produced, or a sentinel error with no mutation
// performed on any rejection.
func Apply(l *Lobby, a Action) ([]Event, error) {
	if a.Type == ActionTeamName {
		return applyTeamName(l, a)
	}

	if l.GameStep < 0 {
		return nil, ErrBadConfig
	}

	if err := preflight(l, a); err != nil {
		return nil, err
	}

	switch l.GameFamily {
	case FamilyFPS:
		return applyFPS(l, a)
	case FamilySplatoon:
		return applySplatoon(l, a)
	default:
		return nil, ErrBadConfig
	}
}

// preflight is the membership/impersonation check run before every team
// action. Capability checks are action-specific and delegated to the
// per-family appliers.
func preflight(l *Lobby, a Action) error {
	isMember := false
	for _, m := range l.Members {
		if m == a.ConnID {
			isMember = true
			break
		}
	}
	if !isMember {
		return ErrNotMember
	}

	bound, ok := l.TeamNameOf(a.ConnID)
	if !ok || bound != a.TeamName {
		return ErrImpersonation
	}

	return nil
}

func applyTeamName(l *Lobby, a Action) ([]Event, error) {
	isMember := false
	for _, m := range l.Members {
		if m == a.ConnID {
			isMember = true
			break
		}
	}
	if !isMember {
		return nil, ErrNotMember
	}

	name, ok := SanitizeTeamName(a.TeamName)
	if !ok {
		return nil, ErrBadConfig
	}
	l.TeamNames.Set(a.ConnID, name)

	events := []Event{
		{Type: EvtGameStateMessage, Payload: GameStateMessagePayload{Key: "teamNamesUpdated"}},
		TeamNamesDelta(l),
	}

	if !l.Started && l.TeamNames.Len() == 2 {
		startEvents, err := startGame(l)
		if err == nil {
			events = append(events, startEvents...)
		}
	}
	return events, nil
}

// hasMapEntry reports whether mapName already appears in pickedMaps union
// bannedMaps — the no-duplicate invariant that keeps a map from being
// chosen twice in one ceremony. scope restricts the search to one Splatoon
// round when non-zero (FPS always
// passes 0, since an FPS ceremony is a single round).
func hasMapEntry(l *Lobby, mapName string, scopeRound int) bool {
	for _, p := range l.PickedMaps {
		if p.Map == mapName && (scopeRound == 0 || p.RoundNumber == scopeRound) {
			return true
		}
	}
	for _, b := range l.BannedMaps {
		if b.Map == mapName && (scopeRound == 0 || b.RoundNumber == scopeRound) {
			return true
		}
	}
	if l.DeciderMap != nil && l.DeciderMap.Map == mapName {
		return true
	}
	return false
}

func mapInPool(l *Lobby, mapName string) bool {
	for _, m := range l.Rules.MapNames {
		if m == mapName {
			return true
		}
	}
	return false
}

// checkMapAvailable distinguishes "not in the active pool" from "already
// picked or banned this ceremony" rather than collapsing both rejections
// into one sentinel.
func checkMapAvailable(l *Lobby, mapName string, scopeRound int) error {
	if !mapInPool(l, mapName) {
		return ErrUnknownMap
	}
	if hasMapEntry(l, mapName, scopeRound) {
		return ErrMapTaken
	}
	return nil
}

// StartGame begins the ceremony immediately, without waiting for both team
// names to be bound. Called by the admin surface for admin-controlled
// lobbies; applyTeamName calls the unexported startGame directly once
// TeamNames reaches two entries.
func StartGame(l *Lobby) ([]Event, error) {
	return startGame(l)
}
