package models

import (
	"time"

	"gorm.io/gorm"
)

// CampaignPayout is a creator's withdrawal request against a campaign's
// raised funds. Reference is generated before the provider transfer is
// dispatched and correlates the transfer webhook back to this row.
type CampaignPayout struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"not null;index" json:"user_id"`
	CampaignID     uint           `gorm:"not null;index" json:"campaign_id"`
	RequestedCents int64          `gorm:"not null" json:"requested_cents"`
	GrossCents     int64          `gorm:"not null" json:"gross_cents"`
	FeeCents       int64          `gorm:"not null" json:"fee_cents"`
	NetCents       int64          `gorm:"not null" json:"net_cents"`
	Currency       string         `gorm:"size:3;not null" json:"currency"`
	Status         string         `gorm:"size:20;not null;index" json:"status"` // PENDING, APPROVED, COMPLETED, FAILED
	Provider       string         `gorm:"size:20;not null" json:"provider"`
	Reference      string         `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	ProviderRef    string         `gorm:"size:128" json:"provider_ref"` // provider transfer id
	BankName       string         `gorm:"size:100" json:"bank_name"`
	AccountNumber  string         `gorm:"size:32" json:"account_number"`
	AccountName    string         `gorm:"size:100" json:"account_name"`
	FailureReason  string         `gorm:"size:50" json:"failure_reason"`
	ProcessedAt    *time.Time     `json:"processed_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Campaign Campaign `gorm:"foreignKey:CampaignID" json:"-"`
}

func (CampaignPayout) TableName() string {
	return "campaign_payouts"
}
