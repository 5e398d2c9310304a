package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign is a fundraiser. CurrentAmountCents is owned by the ledger:
// it only moves through CampaignRepository.IncrementRaised / DecrementRaised.
type Campaign struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	CreatorID             uint           `gorm:"not null;index" json:"creator_id"`
	Title                 string         `gorm:"size:255" json:"title"`
	GoalAmountCents       int64          `gorm:"not null" json:"goal_amount_cents"`
	CurrentAmountCents    int64          `gorm:"not null;default:0" json:"current_amount_cents"`
	Currency              string         `gorm:"size:3;not null" json:"currency"`
	ChainerCommissionRate float64        `gorm:"not null;default:0" json:"chainer_commission_rate"` // percent, 0 when not chained
	IsChained             bool           `gorm:"not null;default:false" json:"is_chained"`
	Status                string         `gorm:"size:20;not null;index" json:"status"` // ACTIVE, GOAL_REACHED, EXPIRED, PAUSED, CLOSED
	IsActive              bool           `gorm:"not null;default:true" json:"is_active"`
	Duration              string         `gorm:"size:20" json:"duration"` // "1 week", "2 weeks", "1 month", "1 year"; empty = no expiry
	GoalReachedAt         *time.Time     `json:"goal_reached_at"`
	AutoCloseAt           *time.Time     `json:"auto_close_at"`
	ClosedAt              *time.Time     `json:"closed_at"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Campaign) TableName() string {
	return "campaigns"
}
