package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/models"
	"chainfund/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrUnknownReferralCode = errors.New("unknown referral code")
	ErrReferralMismatch    = errors.New("referral code belongs to a different campaign")
)

// DonationService owns donation intake: acceptance checks against the
// campaign lifecycle, referral attribution and the PENDING record the
// provider webhook later reconciles.
type DonationService struct {
	donationRepo *repository.DonationRepository
	campaignRepo *repository.CampaignRepository
	chainerRepo  *repository.ChainerRepository
}

func NewDonationService(donationRepo *repository.DonationRepository, campaignRepo *repository.CampaignRepository, chainerRepo *repository.ChainerRepository) *DonationService {
	return &DonationService{
		donationRepo: donationRepo,
		campaignRepo: campaignRepo,
		chainerRepo:  chainerRepo,
	}
}

// CreateDonationInput is the donor-supplied intent. ReferralCode is optional;
// when present it attributes the donation to the chainer behind it.
type CreateDonationInput struct {
	CampaignID    uint   `json:"campaign_id" binding:"required"`
	AmountCents   int64  `json:"amount_cents" binding:"required"`
	Currency      string `json:"currency" binding:"required"`
	PaymentMethod string `json:"payment_method"`
	Provider      string `json:"provider" binding:"required"`
	ReferralCode  string `json:"referral_code"`
}

// Create validates the intent and persists a PENDING donation carrying a
// fresh provider reference. The caller hands the reference to the payment
// provider; the webhook flow finishes the job.
func (s *DonationService) Create(donorID uint, in *CreateDonationInput, now time.Time) (*models.Donation, error) {
	if in.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if !domain.SupportedCurrency(in.Currency) {
		return nil, ErrUnsupportedCurrency
	}
	if in.Provider != domain.ProviderStripe && in.Provider != domain.ProviderPaystack {
		return nil, ErrUnsupportedProvider
	}

	c, err := s.campaignRepo.GetByID(in.CampaignID)
	if errors.Is(err, repository.ErrCampaignNotFound) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.Currency != in.Currency {
		return nil, ErrCurrencyMismatch
	}
	if err := CheckAcceptance(c, now); err != nil {
		return nil, err
	}

	var chainerID *uint
	if in.ReferralCode != "" {
		ch, err := s.chainerRepo.GetByReferralCode(in.ReferralCode)
		if errors.Is(err, repository.ErrChainerNotFound) {
			return nil, ErrUnknownReferralCode
		}
		if err != nil {
			return nil, err
		}
		if ch.CampaignID != c.ID {
			return nil, ErrReferralMismatch
		}
		// Inactive chainers still attribute the donation; the commission
		// flow skips the grant later.
		chainerID = &ch.ID
	}

	d := &models.Donation{
		CampaignID:    c.ID,
		DonorID:       donorID,
		ChainerID:     chainerID,
		AmountCents:   in.AmountCents,
		Currency:      in.Currency,
		PaymentMethod: in.PaymentMethod,
		Provider:      in.Provider,
		ProviderRef:   fmt.Sprintf("don-%s", uuid.New().String()),
	}
	if err := s.donationRepo.Create(d); err != nil {
		return nil, err
	}
	log.Printf("[donation] donation %d created for campaign %d, %d %s, reference=%s", d.ID, c.ID, d.AmountCents, d.Currency, d.ProviderRef)
	return d, nil
}

// Get returns the donation by ID.
func (s *DonationService) Get(id uint) (*models.Donation, error) {
	return s.donationRepo.GetByID(id)
}
