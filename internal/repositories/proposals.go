package repositories

import (
	"context"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"time"
)

type Proposals struct {
	db     *gorm.DB
	offers offerRepository
}

// NewProposalsRepository returns the proposals repository. offers, when not nil, is used to fill in job titles.
func NewProposalsRepository(db *gorm.DB, offers offerRepository) *Proposals {
	return &Proposals{db: db, offers: offers}
}

func (repo *Proposals) Add(ctx context.Context, proposal models.Proposal) error {
	return repo.db.WithContext(ctx).Create(&proposal).Error
}

func (repo *Proposals) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := repo.db.WithContext(ctx).First(&proposal, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to get proposal %s", id)
	}
	proposals := []models.Proposal{proposal}
	repo.fillTitles(ctx, proposals)
	return &proposals[0], nil
}

// ListForViewer returns the proposals a viewer may see, newest first: a recruiter sees their own
// submissions, a company sees the submissions against its offers.
func (repo *Proposals) ListForViewer(ctx context.Context, viewer models.Viewer) ([]models.Proposal, error) {

	query := repo.db.WithContext(ctx).Model(&models.Proposal{})
	switch viewer.Role {
	case models.RoleRecruiter:
		query = query.Where("LOWER(recruiter_email) = ?", viewer.Email)
	case models.RoleCompany:
		owned := repo.db.Model(&models.JobOffer{}).Select("id").Where("LOWER(company_email) = ?", viewer.Email)
		query = query.Where("LOWER(company_email) = ? OR job_offer_id IN (?)", viewer.Email, owned)
	default:
		return nil, errors.Errorf("unknown viewer role %q", viewer.Role)
	}

	var proposals []models.Proposal
	if err := query.Order("created_at DESC").Order("id").Find(&proposals).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list proposals for %s", viewer.Email)
	}

	repo.fillTitles(ctx, proposals)
	return proposals, nil
}

func (repo *Proposals) fillTitles(ctx context.Context, proposals []models.Proposal) {
	if repo.offers == nil {
		return
	}
	for i := range proposals {
		offer, err := repo.offers.GetByID(ctx, proposals[i].JobOfferID)
		if err != nil {
			log.Warnf("couldn't load job offer %s for proposal %s: %v", proposals[i].JobOfferID, proposals[i].ID, err)
			continue
		}
		if offer != nil {
			proposals[i].JobTitle = offer.Title
		}
	}
}

// UpdateStatus writes status and updatedAt unless the row already carries a newer write, in which
// case the call is a stale success. Writing the same status again is harmless.
func (repo *Proposals) UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time) error {
	if !status.IsValid() {
		return errors.Errorf("refusing to store unknown status %q", status)
	}

	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Proposal
		if err := tx.Select("id", "updated_at").First(&current, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Wrapf(err, "proposal %s", id)
			}
			return errors.Wrapf(err, "failed to read proposal %s", id)
		}

		if current.UpdatedAt.After(updatedAt) {
			log.Debugf("status write of proposal %s at %v overtaken by write at %v", id, updatedAt, current.UpdatedAt)
			return nil
		}

		err := tx.Model(&models.Proposal{}).Where("id = ?", id).
			UpdateColumns(map[string]any{
				"status":     status,
				"updated_at": updatedAt.UTC(),
			}).Error
		if err != nil {
			return errors.Wrapf(err, "failed to update status of proposal %s", id)
		}
		return nil
	})
}

func (repo *Proposals) Delete(ctx context.Context, id string) error {
	res := repo.db.WithContext(ctx).Delete(&models.Proposal{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to delete proposal %s", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(gorm.ErrRecordNotFound, "proposal %s", id)
	}
	return nil
}
