package pyramid

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// DefaultDepthCap bounds the depth a client may select.
const DefaultDepthCap = 6

var ErrInsufficientCards = errors.New("insufficient cards")

// InsufficientCardsError carries the largest depth the pool could serve so
// the caller can retry with a smaller one.
type InsufficientCardsError struct {
	Requested int
	Available int
	MaxDepth  int
}

func (e *InsufficientCardsError) Error() string {
	return fmt.Sprintf("insufficient cards: depth %d needs %d cards, have %d (max depth %d)",
		e.Requested, NodeCount(e.Requested), e.Available, e.MaxDepth)
}

func (e *InsufficientCardsError) Unwrap() error { return ErrInsufficientCards }

// Pyramid is a binary tree of cards in heap layout: node i has children
// 2i+1 (L) and 2i+2 (R).
type Pyramid struct {
	Depth int    `json:"depth"`
	Nodes []Card `json:"nodes"`
}

// NodeCount is the triangular number depth*(depth+1)/2.
func NodeCount(depth int) int {
	if depth <= 0 {
		return 0
	}
	return depth * (depth + 1) / 2
}

// shuffle is swapped out in tests for deterministic pyramids.
var shuffle = rand.Shuffle

// Build samples NodeCount(depth) cards from the pool without replacement and
// numbers them 0..N-1 in shuffle order. The pool slice is left untouched.
func Build(cards []Card, depth int) (*Pyramid, error) {
	n := NodeCount(depth)
	if depth < 1 || n > len(cards) {
		return nil, &InsufficientCardsError{
			Requested: depth,
			Available: len(cards),
			MaxDepth:  MaxDepth(cards, DefaultDepthCap),
		}
	}

	pool := make([]Card, len(cards))
	copy(pool, cards)
	shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	nodes := pool[:n:n]
	for i := range nodes {
		nodes[i].ID = i
	}
	return &Pyramid{Depth: depth, Nodes: nodes}, nil
}

// MaxDepth is the largest depth <= limit whose node count fits the pool,
// never less than 1.
func MaxDepth(cards []Card, limit int) int {
	depth := 0
	for depth < limit && NodeCount(depth+1) <= len(cards) {
		depth++
	}
	return max(1, depth)
}

// Node returns the card at index, or false if the index lies outside the tree.
func (p *Pyramid) Node(index int) (Card, bool) {
	if p == nil || index < 0 || index >= len(p.Nodes) {
		return Card{}, false
	}
	return p.Nodes[index], true
}

// Valid reports whether the node slice matches the declared depth.
func (p *Pyramid) Valid() bool {
	return p != nil && len(p.Nodes) == NodeCount(p.Depth)
}
