package engine

import (
	"maps"
	"time"
)

// AppendHistory snapshots the current round into the ledger. An entry with
// the same (round_index, started_at) is never written twice.
func AppendHistory(l *Lobby, finishedAt time.Time) bool {
	st := l.State
	if st.Pyramid == nil {
		return false
	}
	for _, e := range l.History {
		if e.RoundIndex == st.RoundIndex && e.StartedAt.Equal(st.StartedAt) {
			return false
		}
	}

	l.History = append(l.History, HistoryEntry{
		RoundIndex:     st.RoundIndex,
		StartedAt:      st.StartedAt,
		ActivePlayerID: st.ActivePlayerID,
		Pyramid:        st.Pyramid,
		Answers:        clonePaths(st.Answers),
		Finished:       maps.Clone(st.Finished),
		Scores:         maps.Clone(st.Scores),
		Phase:          PhaseRoundReveal,
		FinishedAt:     finishedAt,
	})
	return true
}

// LastRound returns the most recent ledger entry.
func (l *Lobby) LastRound() (HistoryEntry, bool) {
	if len(l.History) == 0 {
		return HistoryEntry{}, false
	}
	return l.History[len(l.History)-1], true
}
