package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTimeout(t *testing.T) {
	l := startRound(t, lobbyWith(t, "A", "B", "C"), 3, 60)

	cases := []struct {
		name    string
		at      time.Time
		expired bool
	}{
		{name: "before deadline", at: t0.Add(59 * time.Second), expired: false},
		{name: "at deadline", at: t0.Add(60 * time.Second), expired: true},
		{name: "after deadline", at: t0.Add(61 * time.Second), expired: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, expired := CheckTimeout(l, tc.at)
			assert.Equal(t, tc.expired, expired)
			if !tc.expired {
				assert.Empty(t, events)
				assert.Equal(t, PhaseRoundActive, next.State.Phase)
				return
			}
			assert.True(t, ContainsEvent(events, EvtTimerExpired))
			assert.Equal(t, PhaseRoundReveal, next.State.Phase)
			require.Len(t, next.History, 1)
			for _, id := range []string{"B", "C"} {
				assert.Equal(t, Score{}, next.State.Scores[id])
			}
		})
	}

	assert.Equal(t, PhaseRoundActive, l.State.Phase, "input lobby must not change")
}

func TestCheckTimeout_NoTimer(t *testing.T) {
	l := startRound(t, lobbyWith(t, "A"), 2, 0)
	_, next, expired := CheckTimeout(l, t0.Add(24*time.Hour))
	assert.False(t, expired)
	assert.Equal(t, PhaseRoundActive, next.State.Phase)
}

func TestCheckTimeout_OnlyWhenActive(t *testing.T) {
	l := startRound(t, lobbyWith(t, "A", "B"), 2, 60)
	_, l = mustApply(t, l, Command{Type: CmdForceReveal, PlayerID: "A"}, t0)

	_, next, expired := CheckTimeout(l, t0.Add(time.Hour))
	assert.False(t, expired)
	assert.Len(t, next.History, 1)
}
