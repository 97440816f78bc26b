package pyramid

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCards(n int) []Card {
	cards := make([]Card, n)
	for i := range cards {
		cards[i] = Card{ID: -1, Question: fmt.Sprintf("q%d", i), OptionA: "a", OptionB: "b"}
	}
	return cards
}

// noShuffle keeps pool order so node assignment is predictable.
func noShuffle(t *testing.T) {
	t.Helper()
	prev := shuffle
	shuffle = func(int, func(i, j int)) {}
	t.Cleanup(func() { shuffle = prev })
}

func TestBuild_NodeCount(t *testing.T) {
	for depth := 1; depth <= 6; depth++ {
		t.Run(fmt.Sprintf("depth %d", depth), func(t *testing.T) {
			want := depth * (depth + 1) / 2

			p, err := Build(makeCards(want), depth)
			require.NoError(t, err)
			assert.Len(t, p.Nodes, want)
			assert.True(t, p.Valid())
			for i, n := range p.Nodes {
				assert.Equal(t, i, n.ID)
			}

			_, err = Build(makeCards(want-1), depth)
			require.ErrorIs(t, err, ErrInsufficientCards)
		})
	}
}

func TestBuild_SamplesWithoutReplacement(t *testing.T) {
	cards := makeCards(40)
	p, err := Build(cards, 5)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, n := range p.Nodes {
		require.False(t, seen[n.Question], "card %q drawn twice", n.Question)
		seen[n.Question] = true
	}
	for _, c := range cards {
		assert.Equal(t, -1, c.ID, "pool must not be mutated")
	}
}

func TestBuild_ShuffleOrderDecidesNodes(t *testing.T) {
	noShuffle(t)
	p, err := Build(makeCards(10), 3)
	require.NoError(t, err)
	assert.Equal(t, "q0", p.Nodes[0].Question)
	assert.Equal(t, "q5", p.Nodes[5].Question)
}

func TestBuild_InsufficientReportsMaxDepth(t *testing.T) {
	_, err := Build(makeCards(3), 3)

	var ic *InsufficientCardsError
	require.True(t, errors.As(err, &ic))
	assert.Equal(t, 2, ic.MaxDepth)
	assert.Equal(t, 3, ic.Requested)
	assert.Equal(t, 3, ic.Available)
}

func TestMaxDepth(t *testing.T) {
	cases := []struct {
		name  string
		cards int
		limit int
		want  int
	}{
		{name: "empty pool still 1", cards: 0, limit: 6, want: 1},
		{name: "one card", cards: 1, limit: 6, want: 1},
		{name: "three cards", cards: 3, limit: 6, want: 2},
		{name: "five cards", cards: 5, limit: 6, want: 2},
		{name: "six cards", cards: 6, limit: 6, want: 3},
		{name: "exactly 21", cards: 21, limit: 6, want: 6},
		{name: "capped", cards: 500, limit: 6, want: 6},
		{name: "lower cap", cards: 500, limit: 4, want: 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MaxDepth(makeCards(tc.cards), tc.limit))
		})
	}
}

func TestPyramid_Node(t *testing.T) {
	p, err := Build(makeCards(6), 3)
	require.NoError(t, err)

	_, ok := p.Node(ToIndex(Path{Left, Right}))
	assert.True(t, ok)
	_, ok = p.Node(6)
	assert.False(t, ok)

	var empty *Pyramid
	_, ok = empty.Node(0)
	assert.False(t, ok)
}

func TestCard_SanitizeAndValidate(t *testing.T) {
	long := "  Lieber jeden Tag Kaffee oder nie wieder Schokolade essen, egal was passiert, wirklich?  "
	c := Card{Question: long, OptionA: " Kaffee ", OptionB: ""}.Sanitize()

	assert.LessOrEqual(t, len([]rune(c.Question)), MaxQuestionLen)
	assert.Equal(t, "Kaffee", c.OptionA)

	err := c.Validate()
	require.ErrorIs(t, err, ErrMissingOptionB)
	assert.NotErrorIs(t, err, ErrMissingQuestion)

	err = Card{}.Validate()
	assert.ErrorIs(t, err, ErrMissingQuestion)
	assert.ErrorIs(t, err, ErrMissingOptionA)
	assert.ErrorIs(t, err, ErrMissingOptionB)
}

func TestSanitizeText_CountsRunes(t *testing.T) {
	assert.Equal(t, "äöü", SanitizeText("äöüß", 3))
	assert.Equal(t, "abc", SanitizeText("abc", 3))
}
