package models

import (
	"time"

	"gorm.io/gorm"
)

// Chainer is a user's referral relationship to one campaign. The stats
// columns only move through ChainerRepository's atomic increments.
type Chainer struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	UserID                uint           `gorm:"not null;uniqueIndex:idx_chainer_user_campaign" json:"user_id"`
	CampaignID            uint           `gorm:"not null;uniqueIndex:idx_chainer_user_campaign;index" json:"campaign_id"`
	ReferralCode          string         `gorm:"size:20;uniqueIndex;not null" json:"referral_code"`
	TotalRaisedCents      int64          `gorm:"not null;default:0" json:"total_raised_cents"`
	TotalReferrals        int            `gorm:"not null;default:0" json:"total_referrals"`
	CommissionEarnedCents int64          `gorm:"not null;default:0" json:"commission_earned_cents"`
	CommissionPaid        bool           `gorm:"not null;default:false" json:"commission_paid"`
	CommissionDestination string         `gorm:"size:20;not null;default:'KEEP'" json:"commission_destination"` // KEEP or DONATE
	Status                string         `gorm:"size:20;not null;default:'ACTIVE'" json:"status"`               // ACTIVE, SUSPENDED, BANNED
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`

	Campaign Campaign `gorm:"foreignKey:CampaignID" json:"-"`
}

func (Chainer) TableName() string {
	return "chainers"
}
