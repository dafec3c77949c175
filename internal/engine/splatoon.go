package engine

import (
	"crypto/rand"
	"math/big"

	"github.com/veto-ceremony/server/internal/catalog"
)

// startSplatoonMatch seeds round 1's priority team and pattern, then grants
// the first capability.
func startSplatoonMatch(l *Lobby) ([]Event, error) {
	events, err := choosePriorityTeam(l, true)
	if err != nil {
		return nil, err
	}
	events = append(events, startRound(l)...)
	return events, nil
}

// choosePriorityTeam resolves l.PriorityTeam for round 1 (coin flip or
// first-joined team). For round N>1 (firstRound=false, called by
// confirmWinner) it copies Rules.LastWinner into PriorityTeam.
func choosePriorityTeam(l *Lobby, firstRound bool) ([]Event, error) {
	if !firstRound {
		l.PriorityTeam = l.Rules.LastWinner
		return nil, nil
	}

	if len(l.Members) != 2 {
		if !l.Rules.Admin {
			return nil, ErrBadConfig
		}
		if first, ok := l.TeamNames.First(); ok {
			l.PriorityTeam = first
		}
		return nil, nil
	}

	if !l.Rules.CoinFlip {
		first, _ := l.TeamNames.First()
		l.PriorityTeam = first
		return nil, nil
	}

	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return nil, err
	}
	winnerConn := l.Members[n.Int64()]
	winnerTeam, _ := l.TeamNameOf(winnerConn)
	l.PriorityTeam = winnerTeam
	return []Event{{Type: EvtCoinFlip, Payload: winnerTeam}}, nil
}

// startRound resets per-round fields, loads this round's veto patterns, and
// grants the first capability of the round.
func startRound(l *Lobby) []Event {
	firstRound := l.Rules.RoundNumber == 1
	l.RoundModesRules, l.RoundMapsRules = catalog.SplatoonPattern(l.Rules.ModesSize, firstRound)

	if modes, ok := catalog.DefaultActiveModes(l.Rules.ModesSize); ok {
		l.Rules.ActiveModes = modes
	}
	l.BannedModes = nil
	l.PickedMode = ""
	l.GameStep = 0

	events := []Event{{Type: EvtRoundStarted, Payload: l.Rules.RoundNumber}}

	if l.Rules.ModesSize == 2 {
		// No mode-veto phase at all: with exactly two modes in the pool,
		// the mode for this round is assigned deterministically by round
		// parity instead of contested, and the map pool loads immediately.
		mode := l.Rules.ActiveModes[(l.Rules.RoundNumber-1)%len(l.Rules.ActiveModes)]
		l.PickedMode = mode
		if pool, ok := catalog.SplatoonMapPool(mode); ok {
			l.Rules.MapNames = pool
		}
		events = append(events, Event{Type: EvtModePicked, Payload: mode})
		l.grantRoundCapability()
		return append(events, l.capabilityEvents()...)
	}

	l.grantRoundCapability()
	return append(events, l.capabilityEvents()...)
}

// grantRoundCapability grants the current round-step's actor the
// capability its token dictates, or advances phases / ends the round.
func (l *Lobby) grantRoundCapability() {
	if l.GameStep < len(l.RoundModesRules) {
		token := l.RoundModesRules[l.GameStep]
		conn := l.resolveActor(token.Actor)
		switch token.Action {
		case catalog.TokenBan:
			l.grant(conn, Capability{CanModeBan: true})
		case catalog.TokenPick:
			l.grant(conn, Capability{CanModePick: true})
		}
		return
	}

	mapIdx := l.GameStep - len(l.RoundModesRules)
	if mapIdx < len(l.RoundMapsRules) {
		token := l.RoundMapsRules[mapIdx]
		conn := l.resolveActor(token.Actor)
		switch token.Action {
		case catalog.TokenBan:
			l.grant(conn, Capability{CanBan: true})
		case catalog.TokenPick:
			l.grant(conn, Capability{CanPick: true})
		}
		return
	}

	// Map phase exhausted without a pick somehow reached here: nothing to
	// grant: pick handling below always stops at the pick token.
	l.grant("", Capability{})
}

func (l *Lobby) resolveActor(role catalog.TokenActor) string {
	teamName := l.PriorityTeam
	if role == catalog.ActorOther {
		teamName, _ = l.OtherTeamName(l.PriorityTeam)
	}
	conn, _ := l.ConnByTeamName(teamName)
	return conn
}

func applySplatoon(l *Lobby, a Action) ([]Event, error) {
	switch a.Type {
	case ActionModeBan:
		return splatoonModeBan(l, a)
	case ActionModePick:
		return splatoonModePick(l, a)
	case ActionBan:
		return splatoonMapBan(l, a)
	case ActionPick:
		return splatoonMapPick(l, a)
	case ActionProposeWinner:
		return proposeWinner(l, a)
	case ActionConfirmWinner:
		return confirmWinner(l, a)
	default:
		return nil, ErrWrongCapability
	}
}

func splatoonModeBan(l *Lobby, a Action) ([]Event, error) {
	held, holds := l.Capabilities[a.ConnID]
	if !holds || !held.CanModeBan {
		return nil, ErrWrongCapability
	}
	if !modeActive(l, a.Mode) {
		return nil, ErrUnknownMode
	}

	removeMode(l, a.Mode)
	l.BannedModes = append(l.BannedModes, ModeBanEntry{Mode: a.Mode, TeamName: a.TeamName, RoundNumber: l.Rules.RoundNumber})
	l.GameStep++

	events := []Event{{Type: EvtModesUpdated, Payload: l.BannedModes[len(l.BannedModes)-1]}}
	l.grantRoundCapability()
	events = append(events, l.capabilityEvents()...)
	return events, nil
}

func splatoonModePick(l *Lobby, a Action) ([]Event, error) {
	held, holds := l.Capabilities[a.ConnID]
	if !holds || !held.CanModePick {
		return nil, ErrWrongCapability
	}
	if !modeActive(l, a.Mode) {
		return nil, ErrUnknownMode
	}

	pool, ok := catalog.SplatoonMapPool(a.Mode)
	if !ok {
		return nil, ErrUnknownMode
	}
	l.PickedMode = a.Mode
	l.Rules.MapNames = pool
	l.GameStep++

	events := []Event{{Type: EvtModePicked, Payload: a.Mode}}
	l.grantRoundCapability()
	events = append(events, l.capabilityEvents()...)
	return events, nil
}

func splatoonMapBan(l *Lobby, a Action) ([]Event, error) {
	held, holds := l.Capabilities[a.ConnID]
	if !holds || !held.CanBan {
		return nil, ErrWrongCapability
	}
	if err := checkMapAvailable(l, a.Map, l.Rules.RoundNumber); err != nil {
		return nil, err
	}

	l.BannedMaps = append(l.BannedMaps, BanEntry{Map: a.Map, TeamName: a.TeamName, RoundNumber: l.Rules.RoundNumber})
	l.GameStep++

	events := []Event{{Type: EvtBannedUpdated, Payload: l.BannedMaps[len(l.BannedMaps)-1]}}
	l.grantRoundCapability()
	events = append(events, l.capabilityEvents()...)
	return events, nil
}

func splatoonMapPick(l *Lobby, a Action) ([]Event, error) {
	held, holds := l.Capabilities[a.ConnID]
	if !holds || !held.CanPick {
		return nil, ErrWrongCapability
	}
	if err := checkMapAvailable(l, a.Map, l.Rules.RoundNumber); err != nil {
		return nil, err
	}

	entry := MapEntry{Map: a.Map, TeamName: a.TeamName, RoundNumber: l.Rules.RoundNumber}
	l.PickedMaps = append(l.PickedMaps, entry)

	// On the final map pick, disable all capabilities and grant both
	// members canReportWinner.
	l.clearCapabilities()
	for _, m := range l.Members {
		l.Capabilities[m] = Capability{CanReportWinner: true}
	}

	events := []Event{{Type: EvtPickedUpdated, Payload: entry}}
	events = append(events, l.capabilityEvents()...)
	return events, nil
}

func modeActive(l *Lobby, mode string) bool {
	for _, m := range l.Rules.ActiveModes {
		if m == mode {
			return true
		}
	}
	return false
}

func removeMode(l *Lobby, mode string) {
	out := l.Rules.ActiveModes[:0]
	for _, m := range l.Rules.ActiveModes {
		if m != mode {
			out = append(out, m)
		}
	}
	l.Rules.ActiveModes = out
}
