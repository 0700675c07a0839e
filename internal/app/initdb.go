package app

import (
	"context"

	"github.com/talkincode/sneakerdrop/internal/domain"
	"github.com/talkincode/sneakerdrop/internal/purchase"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// checkSneakers initializes the default drop catalog
func (a *Application) checkSneakers() {
	defaultSneakers := []domain.Sneaker{
		{
			ID:        1,
			Model:     "Air Jordan 1 High OG",
			BasePrice: 180,
			IsCollab:  false,
			Sizes:     domain.SizeStock{"US9": 10, "US10": 20, "US11": 5},
		},
		{
			ID:        2,
			Model:     "Travis Scott x Air Jordan 1 Low",
			BasePrice: 150,
			IsCollab:  true,
			Sizes:     domain.SizeStock{"US9": 5, "US10": 5},
		},
	}

	ctx := context.Background()
	for _, snk := range defaultSneakers {
		_, err := a.store.GetSneaker(ctx, snk.ID)
		switch {
		case errors.Is(err, purchase.ErrNotFound):
			snk := snk
			if err := a.store.CreateSneaker(ctx, &snk); err != nil {
				zap.L().Error("failed to create default sneaker",
					zap.String("model", snk.Model), zap.Error(err))
			} else {
				zap.L().Info("initialized default sneaker",
					zap.Int64("id", snk.ID), zap.String("model", snk.Model))
			}
		case err != nil:
			zap.L().Error("failed to query default sneaker",
				zap.Int64("id", snk.ID), zap.Error(err))
		}
	}
}
