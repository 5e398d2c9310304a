package repository

import (
	"errors"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/models"

	"gorm.io/gorm"
)

var ErrDonationNotFound = errors.New("donation not found")

type DonationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

func (r *DonationRepository) Create(d *models.Donation) error {
	if d.PaymentStatus == "" {
		d.PaymentStatus = domain.DonationPending
	}
	if d.LastStatusUpdate.IsZero() {
		d.LastStatusUpdate = time.Now()
	}
	return r.db.Create(d).Error
}

func (r *DonationRepository) GetByID(id uint) (*models.Donation, error) {
	var d models.Donation
	err := r.db.First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDonationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DonationRepository) GetByProviderRef(ref string) (*models.Donation, error) {
	var d models.Donation
	err := r.db.Where("provider_ref = ?", ref).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDonationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// MarkCompleted transitions PENDING -> COMPLETED. The status predicate makes
// the update a no-op on replayed webhook deliveries; applied reports whether
// this call actually performed the transition.
func (r *DonationRepository) MarkCompleted(id uint, now time.Time) (applied bool, err error) {
	tx := r.db.Model(&models.Donation{}).
		Where("id = ? AND payment_status = ?", id, domain.DonationPending).
		Updates(map[string]interface{}{
			"payment_status":     domain.DonationCompleted,
			"processed_at":       now,
			"last_status_update": now,
		})
	return tx.RowsAffected > 0, tx.Error
}

// MarkFailed transitions PENDING -> FAILED, records the failure reason and
// counts the attempt.
func (r *DonationRepository) MarkFailed(id uint, reason string, now time.Time) (applied bool, err error) {
	tx := r.db.Model(&models.Donation{}).
		Where("id = ? AND payment_status = ?", id, domain.DonationPending).
		Updates(map[string]interface{}{
			"payment_status":     domain.DonationFailed,
			"failure_reason":     reason,
			"retry_attempts":     gorm.Expr("retry_attempts + 1"),
			"last_status_update": now,
		})
	return tx.RowsAffected > 0, tx.Error
}

// MarkCanceled transitions PENDING -> CANCELED (donor abandoned the payment).
func (r *DonationRepository) MarkCanceled(id uint, now time.Time) (applied bool, err error) {
	tx := r.db.Model(&models.Donation{}).
		Where("id = ? AND payment_status = ?", id, domain.DonationPending).
		Updates(map[string]interface{}{
			"payment_status":     domain.DonationCanceled,
			"failure_reason":     domain.FailureUserCancelled,
			"last_status_update": now,
		})
	return tx.RowsAffected > 0, tx.Error
}

// MarkRefunded transitions COMPLETED -> REFUNDED.
func (r *DonationRepository) MarkRefunded(id uint, now time.Time) (applied bool, err error) {
	tx := r.db.Model(&models.Donation{}).
		Where("id = ? AND payment_status = ?", id, domain.DonationCompleted).
		Updates(map[string]interface{}{
			"payment_status":     domain.DonationRefunded,
			"last_status_update": now,
		})
	return tx.RowsAffected > 0, tx.Error
}

// ReopenForRetry transitions FAILED -> PENDING for another attempt. The
// attempt was already counted by MarkFailed.
func (r *DonationRepository) ReopenForRetry(id uint, now time.Time) (applied bool, err error) {
	tx := r.db.Model(&models.Donation{}).
		Where("id = ? AND payment_status = ?", id, domain.DonationFailed).
		Updates(map[string]interface{}{
			"payment_status":     domain.DonationPending,
			"last_status_update": now,
		})
	return tx.RowsAffected > 0, tx.Error
}

// MarkTerminallyFailed is used by the sweep for donations stuck in PENDING
// past the max pending age.
func (r *DonationRepository) MarkTerminallyFailed(id uint, reason string, now time.Time) (applied bool, err error) {
	tx := r.db.Model(&models.Donation{}).
		Where("id = ? AND payment_status = ?", id, domain.DonationPending).
		Updates(map[string]interface{}{
			"payment_status":     domain.DonationFailed,
			"failure_reason":     reason,
			"last_status_update": now,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *DonationRepository) ListStalePending(cutoff time.Time) ([]models.Donation, error) {
	var out []models.Donation
	err := r.db.Where("payment_status = ? AND created_at < ?", domain.DonationPending, cutoff).Find(&out).Error
	return out, err
}

func (r *DonationRepository) ListRetryCandidates(maxAttempts int) ([]models.Donation, error) {
	var out []models.Donation
	err := r.db.Where("payment_status = ? AND retry_attempts < ?", domain.DonationFailed, maxAttempts).Find(&out).Error
	return out, err
}
