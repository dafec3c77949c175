package engine

import (
	"testing"
)

func newTestFPSLobby(t *testing.T, gameType FPSGameType, poolSize int, knife, coinFlip bool) *Lobby {
	t.Helper()
	pool := []string{"Mirage", "Inferno", "Ancient", "Anubis", "Nuke", "Overpass", "Dust2"}[:poolSize]
	l, err := NewFPSLobby("L1", gameType, pool, knife, coinFlip, false)
	if err != nil {
		t.Fatalf("NewFPSLobby: %v", err)
	}
	return l
}

func joinFPS(l *Lobby, connA, connB string) {
	l.Members = append(l.Members, connA, connB)
}

// TestFPS_BO1_CoinFlipOff_FullCeremony plays out a full 7-map BO1 ban/pick
// ceremony with the coin flip disabled.
func TestFPS_BO1_CoinFlipOff_FullCeremony(t *testing.T) {
	l := newTestFPSLobby(t, BO1, 7, false, false)
	joinFPS(l, "connA", "connB")

	if _, err := Apply(l, Action{Type: ActionTeamName, ConnID: "connA", TeamName: "A"}); err != nil {
		t.Fatalf("teamName A: %v", err)
	}
	if _, err := Apply(l, Action{Type: ActionTeamName, ConnID: "connB", TeamName: "B"}); err != nil {
		t.Fatalf("teamName B: %v", err)
	}

	if !l.Started {
		t.Fatalf("expected ceremony to have started once both team names bound")
	}
	if l.CurrentActor != "connA" {
		t.Fatalf("want connA (first joiner) to act first, got %s", l.CurrentActor)
	}

	bans := []struct {
		conn, team, mapName string
	}{
		{"connA", "A", "Mirage"},
		{"connB", "B", "Inferno"},
		{"connA", "A", "Ancient"},
		{"connB", "B", "Anubis"},
		{"connA", "A", "Nuke"},
		{"connB", "B", "Overpass"},
	}
	for _, b := range bans {
		if _, err := Apply(l, Action{Type: ActionBan, ConnID: b.conn, TeamName: b.team, Map: b.mapName}); err != nil {
			t.Fatalf("ban %s by %s: %v", b.mapName, b.team, err)
		}
	}

	if len(l.BannedMaps) != 6 {
		t.Fatalf("want 6 bans, got %d", len(l.BannedMaps))
	}
	if l.GameStep != 6 {
		t.Fatalf("want gameStep=6, got %d", l.GameStep)
	}
	if l.CurrentActor != "connA" {
		t.Fatalf("want connA to hold the final pick, got %s", l.CurrentActor)
	}
	if cap := l.Capabilities["connA"]; !cap.CanPick {
		t.Fatalf("want connA to hold CanPick")
	}

	events, err := Apply(l, Action{Type: ActionPick, ConnID: "connA", TeamName: "A", Map: "Dust2", Side: "t"})
	if err != nil {
		t.Fatalf("final pick: %v", err)
	}
	if !ContainsEventType(events, EvtGameCompleted) {
		t.Fatalf("expected EvtGameCompleted, got %+v", events)
	}

	if len(l.PickedMaps) != 1 || l.PickedMaps[0].Map != "Dust2" || l.PickedMaps[0].TeamName != "A" || l.PickedMaps[0].Side != "t" {
		t.Fatalf("unexpected picked maps: %+v", l.PickedMaps)
	}
	if l.GameStep != 7 {
		t.Fatalf("want gameStep=7 at termination, got %d", l.GameStep)
	}
	if len(l.Capabilities) != 0 {
		t.Fatalf("want no capabilities held at termination, got %+v", l.Capabilities)
	}
}

// TestFPS_BO3_KnifeDecider plays out a BO3 ceremony with the knife decider
// enabled, so the final map resolves automatically instead of being picked.
func TestFPS_BO3_KnifeDecider(t *testing.T) {
	l := newTestFPSLobby(t, BO3, 7, true, false)
	joinFPS(l, "connA", "connB")
	Apply(l, Action{Type: ActionTeamName, ConnID: "connA", TeamName: "A"})
	Apply(l, Action{Type: ActionTeamName, ConnID: "connB", TeamName: "B"})

	// Pattern: ban, ban, pick, pick, ban, ban, decider.
	steps := []struct {
		actionType ActionType
		conn, team string
	}{
		{ActionBan, "connA", "A"},
		{ActionBan, "connB", "B"},
	}
	maps := []string{"Mirage", "Inferno"}
	for i, s := range steps {
		if _, err := Apply(l, Action{Type: s.actionType, ConnID: s.conn, TeamName: s.team, Map: maps[i]}); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	// Pick phase: connA picks (BO3 requires startPick + side from opponent).
	if _, err := Apply(l, Action{Type: ActionStartPick, ConnID: "connA", TeamName: "A", Map: "Ancient"}); err != nil {
		t.Fatalf("startPick A: %v", err)
	}
	if cap := l.Capabilities["connB"]; !cap.CanPick {
		t.Fatalf("want connB (opposite) to hold CanPick for side selection")
	}
	if _, err := Apply(l, Action{Type: ActionPick, ConnID: "connB", TeamName: "B", Side: "ct"}); err != nil {
		t.Fatalf("finalize side: %v", err)
	}
	if l.PickedMaps[0].Map != "Ancient" || l.PickedMaps[0].TeamName != "A" || l.PickedMaps[0].Side != "ct" || l.PickedMaps[0].SideTeamName != "B" {
		t.Fatalf("unexpected pick entry: %+v", l.PickedMaps[0])
	}

	if _, err := Apply(l, Action{Type: ActionStartPick, ConnID: "connA", TeamName: "A", Map: "Anubis"}); err != nil {
		t.Fatalf("startPick A second: %v", err)
	}
	if _, err := Apply(l, Action{Type: ActionPick, ConnID: "connB", TeamName: "B", Side: "t"}); err != nil {
		t.Fatalf("finalize side second: %v", err)
	}

	if _, err := Apply(l, Action{Type: ActionBan, ConnID: "connA", TeamName: "A", Map: "Nuke"}); err != nil {
		t.Fatalf("ban2 A: %v", err)
	}
	events, err := Apply(l, Action{Type: ActionBan, ConnID: "connB", TeamName: "B", Map: "Overpass"})
	if err != nil {
		t.Fatalf("ban2 B (final, triggers decider): %v", err)
	}

	if !ContainsEventType(events, EvtDeciderUpdated) {
		t.Fatalf("expected EvtDeciderUpdated on auto-resolved knife decider, got %+v", events)
	}
	if !ContainsEventType(events, EvtGameCompleted) {
		t.Fatalf("expected EvtGameCompleted, got %+v", events)
	}
	if l.DeciderMap == nil || l.DeciderMap.Map != "Dust2" || l.DeciderMap.Side != string(SideDecider) {
		t.Fatalf("unexpected decider map: %+v", l.DeciderMap)
	}
	if len(l.Capabilities) != 0 {
		t.Fatalf("want no further capability after knife decider, got %+v", l.Capabilities)
	}
}

func TestFPS_RejectsWrongCapabilityHolder(t *testing.T) {
	l := newTestFPSLobby(t, BO1, 7, false, false)
	joinFPS(l, "connA", "connB")
	Apply(l, Action{Type: ActionTeamName, ConnID: "connA", TeamName: "A"})
	Apply(l, Action{Type: ActionTeamName, ConnID: "connB", TeamName: "B"})

	_, err := Apply(l, Action{Type: ActionBan, ConnID: "connB", TeamName: "B", Map: "Mirage"})
	if err != ErrWrongCapability {
		t.Fatalf("want ErrWrongCapability, got %v", err)
	}
	if len(l.BannedMaps) != 0 {
		t.Fatalf("rejected action must not mutate state")
	}
}

func TestFPS_RejectsImpersonation(t *testing.T) {
	l := newTestFPSLobby(t, BO1, 7, false, false)
	joinFPS(l, "connA", "connB")
	Apply(l, Action{Type: ActionTeamName, ConnID: "connA", TeamName: "A"})
	Apply(l, Action{Type: ActionTeamName, ConnID: "connB", TeamName: "B"})

	_, err := Apply(l, Action{Type: ActionBan, ConnID: "connA", TeamName: "B", Map: "Mirage"})
	if err != ErrImpersonation {
		t.Fatalf("want ErrImpersonation, got %v", err)
	}
}

func TestFPS_RejectsDuplicateMap(t *testing.T) {
	l := newTestFPSLobby(t, BO1, 7, false, false)
	joinFPS(l, "connA", "connB")
	Apply(l, Action{Type: ActionTeamName, ConnID: "connA", TeamName: "A"})
	Apply(l, Action{Type: ActionTeamName, ConnID: "connB", TeamName: "B"})

	Apply(l, Action{Type: ActionBan, ConnID: "connA", TeamName: "A", Map: "Mirage"})
	_, err := Apply(l, Action{Type: ActionBan, ConnID: "connB", TeamName: "B", Map: "Mirage"})
	if err != ErrMapTaken {
		t.Fatalf("want ErrMapTaken for a map already banned, got %v", err)
	}
}

func TestFPS_RejectsMapNotInPool(t *testing.T) {
	l := newTestFPSLobby(t, BO1, 7, false, false)
	joinFPS(l, "connA", "connB")
	Apply(l, Action{Type: ActionTeamName, ConnID: "connA", TeamName: "A"})
	Apply(l, Action{Type: ActionTeamName, ConnID: "connB", TeamName: "B"})

	_, err := Apply(l, Action{Type: ActionBan, ConnID: "connA", TeamName: "A", Map: "NotAMap"})
	if err != ErrUnknownMap {
		t.Fatalf("want ErrUnknownMap for a map outside the pool, got %v", err)
	}
}

func TestStartGameBeginsAdminLobbyWithOneMember(t *testing.T) {
	l := newTestFPSLobby(t, BO1, 7, false, false)
	l.Rules.Admin = true
	l.Members = append(l.Members, "connA")
	l.TeamNames.Set("connA", "A")

	events, err := StartGame(l)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if !l.Started {
		t.Fatalf("want the lobby marked started")
	}
	if l.CurrentActor != "connA" {
		t.Fatalf("want the lone member to hold priority, got %q", l.CurrentActor)
	}
	if len(events) == 0 {
		t.Fatalf("want StartGame to emit at least a capability grant")
	}
}

func TestStartGameRejectsNonAdminLobbyWithFewerThanTwoMembers(t *testing.T) {
	l := newTestFPSLobby(t, BO1, 7, false, false)
	l.Members = append(l.Members, "connA")

	if _, err := StartGame(l); err != ErrBadConfig {
		t.Fatalf("want ErrBadConfig for a non-admin lobby with one member, got %v", err)
	}
}

func TestStartGameRejectsAlreadyStarted(t *testing.T) {
	l := newTestFPSLobby(t, BO1, 7, false, false)
	joinFPS(l, "connA", "connB")
	l.Started = true

	if _, err := StartGame(l); err != ErrLobbyComplete {
		t.Fatalf("want ErrLobbyComplete for an already-started lobby, got %v", err)
	}
}

func TestValidateFPSConfig(t *testing.T) {
	cases := []struct {
		name     string
		gameType FPSGameType
		poolSize int
		wantErr  bool
	}{
		{"bo3 with 7-map pool", BO3, 7, false},
		{"bo3 with 4-map pool is invalid", BO3, 4, true},
		{"bo5 with 7-map pool", BO5, 7, false},
		{"bo1 with 4-map pool", BO1, 4, false},
		{"bo1 with 7-map pool", BO1, 7, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pool := []string{"a", "b", "c", "d", "e", "f", "g"}[:tc.poolSize]
			_, err := NewFPSLobby("L", tc.gameType, pool, false, false, false)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// ContainsEventType is a small test helper shared by fps_test.go and
// splatoon_test.go.
func ContainsEventType(events []Event, t EventType) bool {
	for _, e := range events {
		if e.Type == t {
			return true
		}
	}
	return false
}
