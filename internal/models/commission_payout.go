package models

import (
	"time"

	"gorm.io/gorm"
)

// CommissionPayout is one unit of commission owed to a chainer for one
// donation. The (chainer_id, donation_id) unique index is the guard that
// keeps a replayed webhook from granting the same commission twice.
type CommissionPayout struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ChainerID     uint           `gorm:"not null;uniqueIndex:idx_commission_grant" json:"chainer_id"`
	DonationID    uint           `gorm:"not null;uniqueIndex:idx_commission_grant" json:"donation_id"`
	CampaignID    uint           `gorm:"not null;index" json:"campaign_id"`
	AmountCents   int64          `gorm:"not null" json:"amount_cents"`
	Currency      string         `gorm:"size:3;not null" json:"currency"`
	Destination   string         `gorm:"size:20;not null;default:'KEEP'" json:"destination"`
	Status        string         `gorm:"size:20;not null;index" json:"status"` // PENDING, APPROVED, PAID, REJECTED, FAILED
	Reference     string         `gorm:"size:64;uniqueIndex" json:"reference"` // set when the transfer is dispatched
	TransactionID string         `gorm:"size:128" json:"transaction_id"`       // provider transfer id
	Notes         string         `gorm:"type:text" json:"notes"`
	ProcessedAt   *time.Time     `json:"processed_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Chainer Chainer `gorm:"foreignKey:ChainerID" json:"-"`
}

func (CommissionPayout) TableName() string {
	return "commission_payouts"
}
