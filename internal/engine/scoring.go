package engine

import "github.com/3bbing/friends-pyramid/internal/pyramid"

// ScorePath compares a guess with the active player's path. Absent levels
// on either side never match.
func ScorePath(depth int, active, guess pyramid.Path) Score {
	matches := 0
	for i := 0; i < depth; i++ {
		if i < len(active) && i < len(guess) && active[i] == guess[i] {
			matches++
		}
	}
	leaf := len(active) == depth && active.Equal(guess)

	s := Score{Matches: matches, Leaf: leaf, Points: matches}
	if leaf {
		s.Points += depth
	}
	return s
}

// ComputeScores scores every player except the active one.
func ComputeScores(l Lobby) map[string]Score {
	st := l.State
	depth := 0
	if st.Pyramid != nil {
		depth = st.Pyramid.Depth
	}
	truth := st.Answers[st.ActivePlayerID]

	scores := make(map[string]Score, len(l.Players))
	for _, p := range l.Players {
		if p.ID == st.ActivePlayerID {
			continue
		}
		scores[p.ID] = ScorePath(depth, truth, st.Answers[p.ID])
	}
	return scores
}
