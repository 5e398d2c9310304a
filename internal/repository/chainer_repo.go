package repository

import (
	"errors"

	"chainfund/internal/models"

	"gorm.io/gorm"
)

var ErrChainerNotFound = errors.New("chainer not found")

type ChainerRepository struct {
	db *gorm.DB
}

func NewChainerRepository(db *gorm.DB) *ChainerRepository {
	return &ChainerRepository{db: db}
}

func (r *ChainerRepository) Create(ch *models.Chainer) error {
	return r.db.Create(ch).Error
}

func (r *ChainerRepository) GetByID(id uint) (*models.Chainer, error) {
	var ch models.Chainer
	err := r.db.First(&ch, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChainerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *ChainerRepository) GetByReferralCode(code string) (*models.Chainer, error) {
	var ch models.Chainer
	err := r.db.Where("referral_code = ?", code).First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChainerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *ChainerRepository) GetByUserAndCampaign(userID, campaignID uint) (*models.Chainer, error) {
	var ch models.Chainer
	err := r.db.Where("user_id = ? AND campaign_id = ?", userID, campaignID).First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChainerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *ChainerRepository) ListByUser(userID uint) ([]models.Chainer, error) {
	var out []models.Chainer
	err := r.db.Where("user_id = ?", userID).Find(&out).Error
	return out, err
}

// ApplyDonation credits a referred donation to the chainer: raised total,
// referral count and earned commission, all as SQL arithmetic.
func (r *ChainerRepository) ApplyDonation(id uint, donationCents, commissionCents int64) error {
	return r.db.Model(&models.Chainer{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_raised_cents":      gorm.Expr("total_raised_cents + ?", donationCents),
			"total_referrals":         gorm.Expr("total_referrals + 1"),
			"commission_earned_cents": gorm.Expr("commission_earned_cents + ?", commissionCents),
		}).Error
}

// ApplySelfCommission credits a self-referral grant. Only the earned
// commission moves; the donation was not referred by this chainer.
func (r *ChainerRepository) ApplySelfCommission(id uint, commissionCents int64) error {
	return r.db.Model(&models.Chainer{}).Where("id = ?", id).
		UpdateColumn("commission_earned_cents", gorm.Expr("commission_earned_cents + ?", commissionCents)).Error
}

// MarkCommissionPaid flags the chainer once a commission payout settles.
func (r *ChainerRepository) MarkCommissionPaid(id uint) error {
	return r.db.Model(&models.Chainer{}).Where("id = ?", id).
		Update("commission_paid", true).Error
}

// SetStatus is the admin moderation edge (suspend/ban/reinstate).
func (r *ChainerRepository) SetStatus(id uint, status string) error {
	return r.db.Model(&models.Chainer{}).Where("id = ?", id).
		Update("status", status).Error
}
