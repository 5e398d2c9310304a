package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"chainfund/internal/database"
	"chainfund/internal/domain"
	"chainfund/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a throwaway sqlite database in the test's temp dir with the
// full schema migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Campaign persists an ACTIVE chained campaign with sensible defaults; tweak
// the returned row and Save it for other shapes.
func Campaign(t *testing.T, db *gorm.DB, goalCents int64, ratePercent float64) *models.Campaign {
	t.Helper()
	c := &models.Campaign{
		CreatorID:             1,
		Title:                 "Test campaign",
		GoalAmountCents:       goalCents,
		Currency:              "NGN",
		ChainerCommissionRate: ratePercent,
		IsChained:             ratePercent > 0,
		Status:                domain.CampaignActive,
		IsActive:              true,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return c
}

// Chainer persists an ACTIVE chainer on the campaign.
func Chainer(t *testing.T, db *gorm.DB, userID, campaignID uint, code string) *models.Chainer {
	t.Helper()
	ch := &models.Chainer{
		UserID:                userID,
		CampaignID:            campaignID,
		ReferralCode:          code,
		CommissionDestination: domain.DestinationKeep,
		Status:                domain.ChainerActive,
	}
	if err := db.Create(ch).Error; err != nil {
		t.Fatalf("create chainer: %v", err)
	}
	return ch
}

// Donation persists a PENDING donation with the given reference.
func Donation(t *testing.T, db *gorm.DB, campaignID, donorID uint, chainerID *uint, amountCents int64, ref string) *models.Donation {
	t.Helper()
	d := &models.Donation{
		CampaignID:       campaignID,
		DonorID:          donorID,
		ChainerID:        chainerID,
		AmountCents:      amountCents,
		Currency:         "NGN",
		PaymentStatus:    domain.DonationPending,
		Provider:         domain.ProviderPaystack,
		ProviderRef:      ref,
		LastStatusUpdate: time.Now(),
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("create donation: %v", err)
	}
	return d
}
