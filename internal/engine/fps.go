package engine

import (
	"crypto/rand"
	"math/big"

	"github.com/veto-ceremony/server/internal/catalog"
)

// startGame is the common "at startGame" entry point for both game
// families. It is invoked automatically once both team names are bound
// (applyTeamName) or directly
// by the admin surface (internal/admin, for admin-controlled lobbies that
// start with fewer than two teams).
func startGame(l *Lobby) ([]Event, error) {
	if l.Started {
		return nil, ErrLobbyComplete
	}

	var events []Event
	var err error
	switch l.GameFamily {
	case FamilyFPS:
		events, err = startFPS(l)
	case FamilySplatoon:
		events, err = startSplatoonMatch(l)
	default:
		err = ErrBadConfig
	}
	if err != nil {
		return nil, err
	}
	l.Started = true
	return events, nil
}

func startFPS(l *Lobby) ([]Event, error) {
	first, events, err := choosePriority(l)
	if err != nil {
		return nil, err
	}
	l.CurrentActor = first

	events = append(events, grantFPSCapability(l)...)
	return events, nil
}

// choosePriority picks the first actor: a coin flip between the two members
// when Rules.CoinFlip is set, otherwise the first-inserted team.
func choosePriority(l *Lobby) (string, []Event, error) {
	if len(l.Members) != 2 {
		if !l.Rules.Admin {
			return "", nil, ErrBadConfig
		}
		// Admin-started lobby with <2 members: whichever member exists (or
		// none) is priority; the ceremony effectively stalls until a second
		// member joins and is granted a capability it can't yet use.
		if len(l.Members) == 1 {
			return l.Members[0], nil, nil
		}
		return "", nil, nil
	}

	if !l.Rules.CoinFlip {
		first, _ := l.TeamNames.First()
		conn, _ := l.ConnByTeamName(first)
		return conn, nil, nil
	}

	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return "", nil, err
	}
	winner := l.Members[n.Int64()]
	return winner, []Event{{Type: EvtCoinFlip, Payload: winner}}, nil
}

// grantFPSCapability grants l.CurrentActor the capability dictated by
// pattern[GameStep], or ends the ceremony if the pattern is exhausted.
func grantFPSCapability(l *Lobby) []Event {
	pattern := catalog.FPSPattern(string(l.Rules.GameType))
	if l.GameStep >= len(pattern) {
		l.grant("", Capability{})
		return []Event{{Type: EvtGameCompleted}}
	}

	step := pattern[l.GameStep]
	switch step {
	case catalog.TokenBan:
		l.grant(l.CurrentActor, Capability{CanBan: true})
	case catalog.TokenPick:
		l.grant(l.CurrentActor, Capability{CanPick: true})
	case catalog.TokenDecider:
		return resolveDecider(l)
	}
	return l.capabilityEvents()
}

// resolveDecider handles the final decider map/side once every ban and pick
// has been consumed: an automatic knife-decider resolution onto the one
// remaining map, or a manual decider pick left to CurrentActor.
func resolveDecider(l *Lobby) []Event {
	if l.Rules.KnifeDecider {
		missing := missingMap(l)
		entry := MapEntry{Map: missing, Side: string(SideDecider)}
		l.DeciderMap = &entry
		l.GameStep = 7
		l.grant("", Capability{})
		return []Event{
			{Type: EvtDeciderUpdated, Payload: entry},
			stateMessage("deciderKnife", map[string]string{"map": missing}),
			{Type: EvtGameCompleted},
		}
	}

	// Non-knife: grant pick (with side) to the current actor, who picks the
	// decider map manually.
	l.grant(l.CurrentActor, Capability{CanPick: true})
	return l.capabilityEvents()
}

func missingMap(l *Lobby) string {
	for _, m := range l.Rules.MapNames {
		if !hasMapEntry(l, m, 0) {
			return m
		}
	}
	return ""
}

func applyFPS(l *Lobby, a Action) ([]Event, error) {
	if l.GameStep >= 7 {
		return nil, ErrLobbyComplete
	}

	pattern := catalog.FPSPattern(string(l.Rules.GameType))
	step := pattern[l.GameStep]

	held, holds := l.Capabilities[a.ConnID]

	switch a.Type {
	case ActionBan:
		if step != catalog.TokenBan || !holds || !held.CanBan {
			return nil, ErrWrongCapability
		}
		if err := checkMapAvailable(l, a.Map, 0); err != nil {
			return nil, err
		}
		l.BannedMaps = append(l.BannedMaps, BanEntry{Map: a.Map, TeamName: a.TeamName})
		l.GameStep++
		events := []Event{{Type: EvtBannedUpdated, Payload: l.BannedMaps[len(l.BannedMaps)-1]}}

		other, _ := l.OtherMember(a.ConnID)
		l.CurrentActor = other
		events = append(events, grantFPSCapability(l)...)
		return events, nil

	case ActionStartPick:
		if step != catalog.TokenPick || !holds || !held.CanPick {
			return nil, ErrWrongCapability
		}
		if l.Rules.GameType == BO1 {
			// BO1 picks map and side in one event; startPick is a no-op here.
			return nil, nil
		}
		if l.PendingPick != nil {
			return nil, ErrWrongCapability
		}
		if err := checkMapAvailable(l, a.Map, 0); err != nil {
			return nil, err
		}
		l.PendingPick = &PendingPick{Map: a.Map, PickerTeam: a.TeamName}
		other, _ := l.OtherMember(a.ConnID)
		l.CurrentActor = other
		l.grant(other, Capability{CanPick: true})
		events := append([]Event{{Type: EvtStartPickRequired, Payload: a.Map}}, l.capabilityEvents()...)
		return events, nil

	case ActionPick, ActionDecider:
		if !holds || !held.CanPick {
			return nil, ErrWrongCapability
		}

		var entry MapEntry
		if l.PendingPick != nil {
			// Side-selection stage: a.ConnID is the opposite team finalizing
			// the pending map pick with a side.
			entry = MapEntry{Map: l.PendingPick.Map, TeamName: l.PendingPick.PickerTeam, Side: a.Side, SideTeamName: a.TeamName}
			l.PendingPick = nil
		} else {
			if step != catalog.TokenPick && step != catalog.TokenDecider {
				return nil, ErrWrongCapability
			}
			if err := checkMapAvailable(l, a.Map, 0); err != nil {
				return nil, err
			}
			entry = MapEntry{Map: a.Map, TeamName: a.TeamName, Side: a.Side, SideTeamName: a.TeamName}
		}

		l.PickedMaps = append(l.PickedMaps, entry)
		l.GameStep++
		events := []Event{{Type: EvtPickedUpdated, Payload: entry}}

		if l.GameStep >= 7 {
			l.grant("", Capability{})
			events = append(events, Event{Type: EvtGameCompleted})
			return events, nil
		}

		other, _ := l.OtherMember(a.ConnID)
		l.CurrentActor = other
		events = append(events, grantFPSCapability(l)...)
		return events, nil

	default:
		return nil, ErrWrongCapability
	}
}
