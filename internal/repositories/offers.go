package repositories

import (
	"context"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Offers struct {
	db *gorm.DB
}

func NewOffersRepository(db *gorm.DB) *Offers {
	return &Offers{db: db}
}

func (repo *Offers) Add(ctx context.Context, offer models.JobOffer) error {
	return repo.db.WithContext(ctx).Create(&offer).Error
}

// GetByID returns nil without error when the offer does not exist.
func (repo *Offers) GetByID(ctx context.Context, id string) (*models.JobOffer, error) {
	var offer models.JobOffer
	if err := repo.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to get job offer %s", id)
	}
	return &offer, nil
}
