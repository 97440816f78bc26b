// Package questions resolves question pools into card sets.
package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3bbing/friends-pyramid/internal/pyramid"
	"github.com/3bbing/friends-pyramid/internal/store"
)

const RegistryFile = "pools.json"

// FallbackPool is used when neither the request nor the registry names a default.
const FallbackPool = "basic"

type Pool struct {
	Label   string `json:"label"`
	Path    string `json:"path"`
	Default bool   `json:"default"`
}

type Provider struct {
	dir   string
	pools map[string]Pool
	cards store.CardStore
	log   *zap.Logger
}

// NewProvider reads the pool registry from dir. Without a registry a single
// "basic" pool backed by questions.json is assumed.
func NewProvider(dir string, cards store.CardStore, log *zap.Logger) (*Provider, error) {
	pools := map[string]Pool{
		FallbackPool: {Label: "Standard", Path: "questions.json", Default: true},
	}

	raw, err := os.ReadFile(filepath.Join(dir, RegistryFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn("no pool registry, using fallback pool", zap.String("dir", dir))
	case err != nil:
		return nil, fmt.Errorf("read pool registry: %w", err)
	default:
		pools = map[string]Pool{}
		if err := json.Unmarshal(raw, &pools); err != nil {
			return nil, fmt.Errorf("parse pool registry: %w", err)
		}
	}

	return &Provider{dir: dir, pools: pools, cards: cards, log: log}, nil
}

func (p *Provider) ListPools() map[string]Pool {
	out := make(map[string]Pool, len(p.pools))
	for k, v := range p.pools {
		out[k] = v
	}
	return out
}

// SanitizeSelection drops unknown keys. An empty result falls back to the
// default pools, then to FallbackPool.
func (p *Provider) SanitizeSelection(keys []string) []string {
	var valid []string
	for _, k := range keys {
		if _, ok := p.pools[k]; ok && !slices.Contains(valid, k) {
			valid = append(valid, k)
		}
	}
	if len(valid) > 0 {
		return valid
	}
	for k, pool := range p.pools {
		if pool.Default {
			valid = append(valid, k)
		}
	}
	if len(valid) == 0 {
		return []string{FallbackPool}
	}
	sort.Strings(valid)
	return valid
}

// LoadCards merges the selected pools with the team's and the global custom
// cards. Malformed cards are dropped.
func (p *Provider) LoadCards(ctx context.Context, keys []string, teamID string) ([]pyramid.Card, error) {
	keys = p.SanitizeSelection(keys)

	loaded := make([][]pyramid.Card, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		pool, ok := p.pools[key]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cards, err := p.readPool(pool)
			if err != nil {
				return fmt.Errorf("pool %s: %w", key, err)
			}
			loaded[i] = cards
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	custom, err := p.cards.ListCards(ctx, teamID)
	if err != nil {
		return nil, err
	}

	var all []pyramid.Card
	for _, cards := range loaded {
		all = append(all, cards...)
	}
	all = append(all, custom...)
	return clean(all), nil
}

// CountCards reports the usable cards per pool, without custom cards.
func (p *Provider) CountCards() map[string]int {
	counts := make(map[string]int, len(p.pools))
	for key, pool := range p.pools {
		cards, err := p.readPool(pool)
		if err != nil {
			p.log.Warn("pool unreadable", zap.String("pool", key), zap.Error(err))
			continue
		}
		counts[key] = len(clean(cards))
	}
	return counts
}

// AddCustom stores a sanitized card for the team, or for everyone if global.
func (p *Provider) AddCustom(ctx context.Context, teamID string, c pyramid.Card, global bool) (pyramid.Card, error) {
	c = c.Sanitize()
	if err := c.Validate(); err != nil {
		return pyramid.Card{}, err
	}
	owner := teamID
	if global {
		owner = ""
	}
	if err := p.cards.AddCard(ctx, owner, c); err != nil {
		return pyramid.Card{}, err
	}
	p.log.Info("custom card added", zap.String("team_id", teamID), zap.Bool("global", global))
	return c, nil
}

func (p *Provider) readPool(pool Pool) ([]pyramid.Card, error) {
	path := pool.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.dir, path)
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cards []pyramid.Card
	if err := json.Unmarshal(raw, &cards); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cards, nil
}

func clean(cards []pyramid.Card) []pyramid.Card {
	out := make([]pyramid.Card, 0, len(cards))
	for _, c := range cards {
		c = c.Sanitize()
		if c.Validate() != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}
