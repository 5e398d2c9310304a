package models

import (
	"time"

	"gorm.io/gorm"
)

// Donation is one donor-to-campaign money transfer attempt. Amounts are in
// minor units (kobo/cents). Status transitions only happen through
// DonationRepository's guarded updates.
type Donation struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	CampaignID       uint           `gorm:"not null;index" json:"campaign_id"`
	DonorID          uint           `gorm:"not null;index" json:"donor_id"`
	ChainerID        *uint          `gorm:"index" json:"chainer_id"` // set when the donation arrived via a referral link
	AmountCents      int64          `gorm:"not null" json:"amount_cents"`
	Currency         string         `gorm:"size:3;not null" json:"currency"`
	PaymentStatus    string         `gorm:"size:20;not null;index" json:"payment_status"` // PENDING, COMPLETED, FAILED, REFUNDED, CANCELED
	PaymentMethod    string         `gorm:"size:50" json:"payment_method"`
	Provider         string         `gorm:"size:20;not null" json:"provider"`
	ProviderRef      string         `gorm:"size:255;uniqueIndex;not null" json:"provider_ref"`
	RetryAttempts    int            `gorm:"not null;default:0" json:"retry_attempts"`
	FailureReason    string         `gorm:"size:50" json:"failure_reason"`
	LastStatusUpdate time.Time      `json:"last_status_update"`
	ProcessedAt      *time.Time     `json:"processed_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Campaign Campaign `gorm:"foreignKey:CampaignID" json:"-"`
}

func (Donation) TableName() string {
	return "donations"
}
