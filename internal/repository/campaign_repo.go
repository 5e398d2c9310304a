package repository

import (
	"errors"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/models"

	"gorm.io/gorm"
)

var ErrCampaignNotFound = errors.New("campaign not found")

type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Create(c *models.Campaign) error {
	if c.Status == "" {
		c.Status = domain.CampaignActive
		c.IsActive = true
	}
	return r.db.Create(c).Error
}

func (r *CampaignRepository) GetByID(id uint) (*models.Campaign, error) {
	var c models.Campaign
	err := r.db.First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// IncrementRaised adds a completed donation to the running total. The
// arithmetic happens in SQL so concurrent donations never lose updates.
func (r *CampaignRepository) IncrementRaised(id uint, amountCents int64) error {
	return r.db.Model(&models.Campaign{}).Where("id = ?", id).
		UpdateColumn("current_amount_cents", gorm.Expr("current_amount_cents + ?", amountCents)).Error
}

// DecrementRaised compensates a refund, clamped at zero.
func (r *CampaignRepository) DecrementRaised(id uint, amountCents int64) error {
	return r.db.Model(&models.Campaign{}).Where("id = ?", id).
		UpdateColumn("current_amount_cents",
			gorm.Expr("CASE WHEN current_amount_cents >= ? THEN current_amount_cents - ? ELSE 0 END", amountCents, amountCents)).Error
}

// MarkGoalReached transitions ACTIVE -> GOAL_REACHED. The status predicate
// keeps concurrent evaluators from stamping goal_reached_at twice.
func (r *CampaignRepository) MarkGoalReached(id uint, now, autoCloseAt time.Time) (applied bool, err error) {
	tx := r.db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, domain.CampaignActive).
		Updates(map[string]interface{}{
			"status":          domain.CampaignGoalReached,
			"goal_reached_at": now,
			"auto_close_at":   autoCloseAt,
		})
	return tx.RowsAffected > 0, tx.Error
}

// MarkExpired transitions ACTIVE -> EXPIRED (duration elapsed, goal not reached).
func (r *CampaignRepository) MarkExpired(id uint) (applied bool, err error) {
	tx := r.db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, domain.CampaignActive).
		Updates(map[string]interface{}{
			"status":    domain.CampaignExpired,
			"is_active": false,
		})
	return tx.RowsAffected > 0, tx.Error
}

// Close is the manual close edge: allowed from every state except CLOSED,
// where it is an idempotent no-op.
func (r *CampaignRepository) Close(id uint, now time.Time) (applied bool, err error) {
	tx := r.db.Model(&models.Campaign{}).
		Where("id = ? AND status <> ?", id, domain.CampaignClosed).
		Updates(map[string]interface{}{
			"status":    domain.CampaignClosed,
			"closed_at": now,
			"is_active": false,
		})
	return tx.RowsAffected > 0, tx.Error
}

// AutoClose closes a GOAL_REACHED campaign whose grace window has elapsed.
// The boundary is exclusive: at exactly auto_close_at the campaign stays open.
func (r *CampaignRepository) AutoClose(id uint, now time.Time) (applied bool, err error) {
	tx := r.db.Model(&models.Campaign{}).
		Where("id = ? AND status = ? AND auto_close_at < ?", id, domain.CampaignGoalReached, now).
		Updates(map[string]interface{}{
			"status":    domain.CampaignClosed,
			"closed_at": now,
			"is_active": false,
		})
	return tx.RowsAffected > 0, tx.Error
}

// Pause is admin-set only; there is no automatic entry or exit.
func (r *CampaignRepository) Pause(id uint) (applied bool, err error) {
	tx := r.db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, domain.CampaignActive).
		Update("status", domain.CampaignPaused)
	return tx.RowsAffected > 0, tx.Error
}

func (r *CampaignRepository) ListDueForAutoClose(now time.Time) ([]models.Campaign, error) {
	var out []models.Campaign
	err := r.db.Where("status = ? AND auto_close_at IS NOT NULL AND auto_close_at < ?", domain.CampaignGoalReached, now).Find(&out).Error
	return out, err
}

func (r *CampaignRepository) ListActiveWithDuration() ([]models.Campaign, error) {
	var out []models.Campaign
	err := r.db.Where("status = ? AND duration <> ''", domain.CampaignActive).Find(&out).Error
	return out, err
}
