package engine

import "time"

// Expired reports whether an active round has run past its timer.
// A zero timer means the round never expires.
func (s GameState) Expired(now time.Time) bool {
	if s.Phase != PhaseRoundActive || s.TimerSeconds <= 0 || s.StartedAt.IsZero() {
		return false
	}
	deadline := s.StartedAt.Add(time.Duration(s.TimerSeconds) * time.Second)
	return !now.Before(deadline)
}

// CheckTimeout finalizes an expired round. It is evaluated lazily on every
// touch of the lobby, there is no scheduler behind it.
func CheckTimeout(l Lobby, now time.Time) ([]Event, Lobby, bool) {
	if !l.State.Expired(now) {
		return nil, l, false
	}
	next := l.Clone()
	events := []Event{{Type: EvtTimerExpired, RoundIndex: next.State.RoundIndex}}
	events = append(events, finalize(&next, now)...)
	return events, next, true
}

// finalize scores the round, merges totals, records history and flips to
// reveal. The caller has already checked the phase.
func finalize(l *Lobby, now time.Time) []Event {
	st := &l.State
	st.Scores = ComputeScores(*l)
	if st.Totals == nil {
		st.Totals = map[string]int{}
	}
	for id, s := range st.Scores {
		st.Totals[id] += s.Points
	}

	events := []Event{{Type: EvtRoundFinalized, PlayerID: st.ActivePlayerID, RoundIndex: st.RoundIndex}}
	if AppendHistory(l, now) {
		events = append(events, Event{Type: EvtHistoryAppended, RoundIndex: st.RoundIndex})
	}
	st.Phase = PhaseRoundReveal
	return events
}
