package repository

import (
	"errors"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/models"

	"gorm.io/gorm"
)

var ErrCampaignPayoutNotFound = errors.New("campaign payout not found")

type CampaignPayoutRepository struct {
	db *gorm.DB
}

func NewCampaignPayoutRepository(db *gorm.DB) *CampaignPayoutRepository {
	return &CampaignPayoutRepository{db: db}
}

func (r *CampaignPayoutRepository) Create(p *models.CampaignPayout) error {
	return r.db.Create(p).Error
}

func (r *CampaignPayoutRepository) GetByID(id uint) (*models.CampaignPayout, error) {
	var p models.CampaignPayout
	err := r.db.First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCampaignPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CampaignPayoutRepository) GetByReference(ref string) (*models.CampaignPayout, error) {
	var p models.CampaignPayout
	err := r.db.Where("reference = ?", ref).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCampaignPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// HasOpenForCampaign reports whether an unresolved payout already exists;
// only one may be in flight per campaign.
func (r *CampaignPayoutRepository) HasOpenForCampaign(campaignID uint) (bool, error) {
	var n int64
	err := r.db.Model(&models.CampaignPayout{}).
		Where("campaign_id = ? AND status IN ?", campaignID, []string{domain.PayoutPending, domain.PayoutApproved}).
		Count(&n).Error
	return n > 0, err
}

// SumGrossNonFailed is the gross amount already committed to payouts
// (pending, approved or completed); subtracted from the campaign total to
// get the available balance.
func (r *CampaignPayoutRepository) SumGrossNonFailed(campaignID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.CampaignPayout{}).
		Where("campaign_id = ? AND status NOT IN ?", campaignID, []string{domain.PayoutFailed, domain.PayoutRejected}).
		Select("COALESCE(SUM(gross_cents), 0)").Scan(&total).Error
	return total, err
}

// SetProviderRef stores the provider transfer id after dispatch.
func (r *CampaignPayoutRepository) SetProviderRef(id uint, providerRef string) error {
	return r.db.Model(&models.CampaignPayout{}).Where("id = ?", id).
		Update("provider_ref", providerRef).Error
}

// MarkCompleted is the terminal success transition, guarded so a replayed
// transfer webhook cannot reapply it.
func (r *CampaignPayoutRepository) MarkCompleted(id uint, providerRef string, now time.Time) (applied bool, err error) {
	tx := r.db.Model(&models.CampaignPayout{}).
		Where("id = ? AND status IN ?", id, []string{domain.PayoutPending, domain.PayoutApproved}).
		Updates(map[string]interface{}{
			"status":       domain.PayoutCompleted,
			"provider_ref": providerRef,
			"processed_at": now,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *CampaignPayoutRepository) MarkFailed(id uint, reason string) (applied bool, err error) {
	tx := r.db.Model(&models.CampaignPayout{}).
		Where("id = ? AND status IN ?", id, []string{domain.PayoutPending, domain.PayoutApproved}).
		Updates(map[string]interface{}{"status": domain.PayoutFailed, "failure_reason": reason})
	return tx.RowsAffected > 0, tx.Error
}

func (r *CampaignPayoutRepository) ListByCampaign(campaignID uint) ([]models.CampaignPayout, error) {
	var out []models.CampaignPayout
	err := r.db.Where("campaign_id = ?", campaignID).Order("id DESC").Find(&out).Error
	return out, err
}
