// Package engine implements the veto state machine: the turn controller and
// the Lobby entity it mutates. It has no knowledge of transport, storage, or
// concurrency primitives — callers (internal/lobbyactor) own a Lobby
// exclusively and call Apply from a single goroutine.
package engine

import (
	"time"

	"github.com/veto-ceremony/server/internal/catalog"
)

// GameFamily tags which veto ruleset a Lobby runs.
type GameFamily string

const (
	FamilyFPS      GameFamily = "fps"
	FamilySplatoon GameFamily = "splatoon"
)

// FPS series length, drives pattern choice and map pool size expectations.
type FPSGameType string

const (
	BO1 FPSGameType = "bo1"
	BO3 FPSGameType = "bo3"
	BO5 FPSGameType = "bo5"
)

// Side is the literal string attached to an FPS map pick.
type Side string

const (
	SideT       Side = "t"
	SideCT      Side = "ct"
	SideKnife   Side = "knife"
	SideDecider Side = "DECIDER"
)

// RoundPhase tracks where a Splatoon round currently is.
type RoundPhase string

const (
	PhaseModeBan      RoundPhase = "modeBan"
	PhaseModePick     RoundPhase = "modePick"
	PhaseMapBan       RoundPhase = "mapBan"
	PhaseMapPick      RoundPhase = "mapPick"
	PhaseWinnerReport RoundPhase = "winnerReport"
)

// Capability is the per-connection permission record. CanWork is derived,
// never stored — see (Capability).Any.
type Capability struct {
	CanBan          bool
	CanPick         bool
	CanModeBan      bool
	CanModePick     bool
	CanReportWinner bool
}

// Any reports whether canWorkUpdated should be true for this holder.
func (c Capability) Any() bool {
	return c.CanBan || c.CanPick || c.CanModeBan || c.CanModePick || c.CanReportWinner
}

// MapEntry is one picked map. Side/SideTeamName are empty for Splatoon map
// picks, which carry only Map, TeamName and RoundNumber.
type MapEntry struct {
	Map          string
	TeamName     string
	Side         string
	SideTeamName string
	RoundNumber  int
}

// BanEntry is one banned map.
type BanEntry struct {
	Map         string
	TeamName    string
	RoundNumber int
}

// ModeBanEntry is one banned Splatoon mode.
type ModeBanEntry struct {
	Mode        string
	TeamName    string
	RoundNumber int
}

// RoundRecord is the sealed outcome of one confirmed Splatoon round.
type RoundRecord struct {
	RoundNumber int
	Mode        string
	PickedMap   string
	BannedMaps  []BanEntry
	BannedModes []ModeBanEntry
	Winner      string
}

// Rules holds the sealed-at-creation configuration plus the handful of
// fields that stay mutable after creation (updated by the engine as
// Splatoon rounds progress).
type Rules struct {
	GameType     FPSGameType // FPS only
	Admin        bool
	CoinFlip     bool
	KnifeDecider bool // FPS only

	// Mutable post-creation.
	MapNames    []string // ordered; FPS: immutable after creation. Splatoon: reloaded per picked mode.
	ActiveModes []string // Splatoon only
	LastWinner  string   // Splatoon only
	RoundNumber int      // Splatoon only, 1-based

	ModesSize int // Splatoon only: 2 or 4
}

// PendingPick tracks a BO3/BO5 map pick awaiting a side from the opposite team.
type PendingPick struct {
	Map        string
	PickerTeam string
}

// WinnerProposal tracks an outstanding two-phase-commit winner report.
type WinnerProposal struct {
	WinnerTeam      string
	ReportingConnID string
}

// Lobby is the single entity the controller mutates. One *Lobby is owned
// exclusively by one lobbyactor goroutine; engine itself never locks.
type Lobby struct {
	ID         string
	GameFamily GameFamily
	CreatedAt  time.Time

	Members   []string // connection IDs, join order, len <= 2
	Observers map[string]bool

	TeamNames *OrderedTeamNames

	Rules Rules

	PickedMaps  []MapEntry
	BannedMaps  []BanEntry
	GameStep    int
	DeciderMap  *MapEntry
	PendingPick *PendingPick

	CurrentActor string // connID whose turn it is (FPS alternation)

	// Splatoon-only.
	BannedModes     []ModeBanEntry
	PickedMode      string
	PriorityTeam    string
	RoundHistory    []RoundRecord
	RoundModesRules []catalog.PatternToken
	RoundMapsRules  []catalog.PatternToken
	PendingWinner   *WinnerProposal

	Capabilities map[string]Capability

	Started bool
}

// TeamNameOf returns the team name bound to a connection, if any.
func (l *Lobby) TeamNameOf(connID string) (string, bool) {
	return l.TeamNames.Get(connID)
}

// ConnByTeamName reverse-looks-up a connection from its team name.
func (l *Lobby) ConnByTeamName(teamName string) (string, bool) {
	return l.TeamNames.ByName(teamName)
}

// OtherMember returns the member connID that isn't connID (only valid once
// two members have joined).
func (l *Lobby) OtherMember(connID string) (string, bool) {
	for _, m := range l.Members {
		if m != connID {
			return m, true
		}
	}
	return "", false
}

// OtherTeamName returns the team name of the member opposite teamName.
func (l *Lobby) OtherTeamName(teamName string) (string, bool) {
	conn, ok := l.ConnByTeamName(teamName)
	if !ok {
		return "", false
	}
	other, ok := l.OtherMember(conn)
	if !ok {
		return "", false
	}
	return l.TeamNameOf(other)
}

// Clone deep-copies l for callers outside the owning actor goroutine
// (dispatch.Query, httpapi.Lobbies, admin.SetObsLobby): every slice, map,
// and pointer field l.Apply mutates in place is copied, so a concurrent
// Apply on the original can never be observed torn by a reader holding
// this copy.
func (l *Lobby) Clone() *Lobby {
	c := *l

	c.Members = append([]string(nil), l.Members...)

	c.Observers = make(map[string]bool, len(l.Observers))
	for k, v := range l.Observers {
		c.Observers[k] = v
	}

	c.TeamNames = l.TeamNames.Clone()

	c.Rules.MapNames = append([]string(nil), l.Rules.MapNames...)
	c.Rules.ActiveModes = append([]string(nil), l.Rules.ActiveModes...)

	c.PickedMaps = append([]MapEntry(nil), l.PickedMaps...)
	c.BannedMaps = append([]BanEntry(nil), l.BannedMaps...)

	if l.DeciderMap != nil {
		d := *l.DeciderMap
		c.DeciderMap = &d
	}
	if l.PendingPick != nil {
		p := *l.PendingPick
		c.PendingPick = &p
	}

	c.BannedModes = append([]ModeBanEntry(nil), l.BannedModes...)

	c.RoundHistory = make([]RoundRecord, len(l.RoundHistory))
	for i, rec := range l.RoundHistory {
		rec.BannedMaps = append([]BanEntry(nil), rec.BannedMaps...)
		rec.BannedModes = append([]ModeBanEntry(nil), rec.BannedModes...)
		c.RoundHistory[i] = rec
	}

	c.RoundModesRules = append([]catalog.PatternToken(nil), l.RoundModesRules...)
	c.RoundMapsRules = append([]catalog.PatternToken(nil), l.RoundMapsRules...)

	if l.PendingWinner != nil {
		w := *l.PendingWinner
		c.PendingWinner = &w
	}

	c.Capabilities = make(map[string]Capability, len(l.Capabilities))
	for k, v := range l.Capabilities {
		c.Capabilities[k] = v
	}

	return &c
}

// clearCapabilities resets the capability map to empty (nobody can act).
func (l *Lobby) clearCapabilities() {
	l.Capabilities = make(map[string]Capability)
}

// grant replaces the single holder's capability (all other holders cleared).
func (l *Lobby) grant(connID string, cap Capability) {
	l.clearCapabilities()
	if connID != "" {
		l.Capabilities[connID] = cap
	}
}
