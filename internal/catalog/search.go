// Package catalog provides read-only listings over the sneaker catalog.
// Searches take no locks and tolerate reading a record mid-drop; they
// may observe pre- or post-decrement stock but never a torn value.
package catalog

import (
	"context"
	"sort"

	"github.com/talkincode/sneakerdrop/internal/domain"
	"github.com/talkincode/sneakerdrop/internal/pricing"
)

// Entry is one catalog row with the buyer-specific price applied.
type Entry struct {
	ID    int64            `json:"id"`
	Model string           `json:"model"`
	Price int64            `json:"price"`
	Sizes domain.SizeStock `json:"sizes"`
}

// Lister is the slice of the store the search needs.
type Lister interface {
	ListSneakers(ctx context.Context) ([]domain.Sneaker, error)
}

// Search lists catalog entries priced for the buyer with price <= budget,
// ascending by price with id as the tie-breaker. A zero budget returns
// nothing.
type Search struct {
	store  Lister
	engine pricing.Engine
}

func NewSearch(store Lister, engine pricing.Engine) *Search {
	return &Search{store: store, engine: engine}
}

func (s *Search) Search(ctx context.Context, isPremium bool, budget int64) ([]Entry, error) {
	sneakers, err := s.store.ListSneakers(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(sneakers))
	for _, snk := range sneakers {
		price := s.engine.Price(snk.BasePrice, snk.IsCollab, isPremium)
		if price > budget {
			continue
		}
		entries = append(entries, Entry{
			ID:    snk.ID,
			Model: snk.Model,
			Price: price,
			Sizes: snk.Sizes.Clone(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Price != entries[j].Price {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}
