package repository

import (
	"errors"
	"fmt"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrCommissionPayoutNotFound = errors.New("commission payout not found")

type CommissionPayoutRepository struct {
	db *gorm.DB
}

func NewCommissionPayoutRepository(db *gorm.DB) *CommissionPayoutRepository {
	return &CommissionPayoutRepository{db: db}
}

// CreateGrant records the commission owed to a chainer for one donation.
// FirstOrCreate against the (chainer_id, donation_id) key means a replayed
// webhook finds the existing grant instead of creating a second one;
// created reports whether this call inserted the row.
func (r *CommissionPayoutRepository) CreateGrant(chainerID, donationID, campaignID uint, amountCents int64, currency, destination, notes string) (grant *models.CommissionPayout, created bool, err error) {
	p := models.CommissionPayout{
		ChainerID:   chainerID,
		DonationID:  donationID,
		CampaignID:  campaignID,
		AmountCents: amountCents,
		Currency:    currency,
		Destination: destination,
		Status:      domain.PayoutPending,
		Reference:   fmt.Sprintf("cp-%s", uuid.New().String()),
		Notes:       notes,
	}
	tx := r.db.Where("chainer_id = ? AND donation_id = ?", chainerID, donationID).FirstOrCreate(&p)
	if tx.Error != nil {
		// Two deliveries can race past the lookup; the unique index rejects
		// the loser, for whom the existing grant is the answer.
		var existing models.CommissionPayout
		if lookupErr := r.db.Where("chainer_id = ? AND donation_id = ?", chainerID, donationID).
			First(&existing).Error; lookupErr == nil {
			return &existing, false, nil
		}
		return nil, false, tx.Error
	}
	return &p, tx.RowsAffected > 0, nil
}

func (r *CommissionPayoutRepository) GetByID(id uint) (*models.CommissionPayout, error) {
	var p models.CommissionPayout
	err := r.db.First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommissionPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CommissionPayoutRepository) GetByReference(ref string) (*models.CommissionPayout, error) {
	var p models.CommissionPayout
	err := r.db.Where("reference = ?", ref).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommissionPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CommissionPayoutRepository) Approve(id uint) (applied bool, err error) {
	tx := r.db.Model(&models.CommissionPayout{}).
		Where("id = ? AND status = ?", id, domain.PayoutPending).
		Update("status", domain.PayoutApproved)
	return tx.RowsAffected > 0, tx.Error
}

func (r *CommissionPayoutRepository) Reject(id uint, notes string) (applied bool, err error) {
	tx := r.db.Model(&models.CommissionPayout{}).
		Where("id = ? AND status = ?", id, domain.PayoutPending).
		Updates(map[string]interface{}{"status": domain.PayoutRejected, "notes": notes})
	return tx.RowsAffected > 0, tx.Error
}

// MarkDispatched stores the provider transfer id once the transfer call
// succeeded. The row stays APPROVED until the transfer webhook lands.
func (r *CommissionPayoutRepository) MarkDispatched(id uint, transactionID string) error {
	return r.db.Model(&models.CommissionPayout{}).Where("id = ?", id).
		Update("transaction_id", transactionID).Error
}

// MarkPaid is the terminal success transition, idempotent against webhook replay.
func (r *CommissionPayoutRepository) MarkPaid(id uint, now time.Time) (applied bool, err error) {
	tx := r.db.Model(&models.CommissionPayout{}).
		Where("id = ? AND status = ?", id, domain.PayoutApproved).
		Updates(map[string]interface{}{"status": domain.PayoutPaid, "processed_at": now})
	return tx.RowsAffected > 0, tx.Error
}

func (r *CommissionPayoutRepository) MarkFailed(id uint, reason string) (applied bool, err error) {
	tx := r.db.Model(&models.CommissionPayout{}).
		Where("id = ? AND status IN ?", id, []string{domain.PayoutPending, domain.PayoutApproved}).
		Updates(map[string]interface{}{"status": domain.PayoutFailed, "notes": reason})
	return tx.RowsAffected > 0, tx.Error
}

func (r *CommissionPayoutRepository) ListByChainer(chainerID uint) ([]models.CommissionPayout, error) {
	var out []models.CommissionPayout
	err := r.db.Where("chainer_id = ?", chainerID).Order("id DESC").Find(&out).Error
	return out, err
}

func (r *CommissionPayoutRepository) ListByDonation(donationID uint) ([]models.CommissionPayout, error) {
	var out []models.CommissionPayout
	err := r.db.Where("donation_id = ?", donationID).Find(&out).Error
	return out, err
}
