package repositories

import (
	"context"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	gocache "github.com/patrickmn/go-cache"
	"time"
)

type offerRepository interface {
	GetByID(ctx context.Context, id string) (*models.JobOffer, error)
}

type CachedOffers struct {
	repo  offerRepository
	cache *gocache.Cache
}

func NewCachedOffers(repo offerRepository) *CachedOffers {
	return &CachedOffers{repo: repo, cache: gocache.New(10*time.Minute, 20*time.Minute)}
}

func (c CachedOffers) GetByID(ctx context.Context, id string) (*models.JobOffer, error) {
	if value, found := c.cache.Get(id); found {
		offer := value.(models.JobOffer)
		return &offer, nil
	}

	offer, err := c.repo.GetByID(ctx, id)
	if offer != nil {
		c.cache.Set(id, *offer, gocache.DefaultExpiration)
	}

	return offer, err
}
