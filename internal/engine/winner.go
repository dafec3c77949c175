package engine

// proposeWinner is the first step of the two-phase-commit winner report:
// one member proposes a winner, and the opposite member must confirm or
// reject it before the round can close.
func proposeWinner(l *Lobby, a Action) ([]Event, error) {
	held, holds := l.Capabilities[a.ConnID]
	if !holds || !held.CanReportWinner {
		return nil, ErrWrongCapability
	}
	if l.PendingWinner != nil {
		// A proposal is already outstanding; first-writer-wins means later
		// proposals are simply dropped.
		return nil, ErrWrongCapability
	}
	if _, ok := l.ConnByTeamName(a.WinnerTeam); !ok {
		return nil, ErrBadConfig
	}

	l.PendingWinner = &WinnerProposal{WinnerTeam: a.WinnerTeam, ReportingConnID: a.ConnID}

	other, _ := l.OtherMember(a.ConnID)
	return []Event{{Type: EvtWinnerProposed, ConnID: other, Payload: a.WinnerTeam}}, nil
}

// confirmWinner is the second step of the two-phase-commit winner report.
// Only the connection opposite the reporter may confirm or reject.
func confirmWinner(l *Lobby, a Action) ([]Event, error) {
	if l.PendingWinner == nil {
		return nil, ErrNoPendingWinner
	}
	if a.ConnID == l.PendingWinner.ReportingConnID {
		return nil, ErrSelfConfirm
	}
	held, holds := l.Capabilities[a.ConnID]
	if !holds || !held.CanReportWinner {
		return nil, ErrWrongCapability
	}

	winner := l.PendingWinner.WinnerTeam

	if !a.Confirmed {
		l.PendingWinner = nil
		l.clearCapabilities()
		l.Capabilities[a.ConnID] = Capability{CanReportWinner: true}
		return append(
			[]Event{{Type: EvtWinnerRejected}},
			l.capabilityEvents()...,
		), nil
	}

	record := RoundRecord{
		RoundNumber: l.Rules.RoundNumber,
		Mode:        l.PickedMode,
		Winner:      winner,
	}
	if len(l.PickedMaps) > 0 {
		record.PickedMap = l.PickedMaps[len(l.PickedMaps)-1].Map
	}
	for _, b := range l.BannedMaps {
		if b.RoundNumber == l.Rules.RoundNumber {
			record.BannedMaps = append(record.BannedMaps, b)
		}
	}
	for _, m := range l.BannedModes {
		if m.RoundNumber == l.Rules.RoundNumber {
			record.BannedModes = append(record.BannedModes, m)
		}
	}
	l.RoundHistory = append(l.RoundHistory, record)

	l.PendingWinner = nil
	l.Rules.LastWinner = winner
	l.Rules.RoundNumber++

	events := []Event{{Type: EvtWinnerConfirmed, Payload: record}}
	priorityEvents, err := choosePriorityTeam(l, false)
	if err != nil {
		return nil, err
	}
	events = append(events, priorityEvents...)
	events = append(events, startRound(l)...)
	return events, nil
}
