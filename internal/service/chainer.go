package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"chainfund/internal/models"
	"chainfund/internal/repository"

	"github.com/google/uuid"
)

var ErrCampaignNotChained = errors.New("campaign does not support chaining")

// ChainerService handles joining a campaign's referral chain. Joining is
// idempotent per (user, campaign): a second join returns the existing row and
// its referral code.
type ChainerService struct {
	campaignRepo *repository.CampaignRepository
	chainerRepo  *repository.ChainerRepository
}

func NewChainerService(campaignRepo *repository.CampaignRepository, chainerRepo *repository.ChainerRepository) *ChainerService {
	return &ChainerService{campaignRepo: campaignRepo, chainerRepo: chainerRepo}
}

// Join enrolls the user as a chainer on the campaign and returns the chainer
// row plus whether it was newly created.
func (s *ChainerService) Join(userID, campaignID uint, now time.Time) (*models.Chainer, bool, error) {
	c, err := s.campaignRepo.GetByID(campaignID)
	if errors.Is(err, repository.ErrCampaignNotFound) {
		return nil, false, ErrCampaignNotFound
	}
	if err != nil {
		return nil, false, err
	}
	if !c.IsChained {
		return nil, false, ErrCampaignNotChained
	}
	if err := CheckAcceptance(c, now); err != nil {
		return nil, false, err
	}

	existing, err := s.chainerRepo.GetByUserAndCampaign(userID, campaignID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrChainerNotFound) {
		return nil, false, err
	}

	ch := &models.Chainer{
		UserID:       userID,
		CampaignID:   campaignID,
		ReferralCode: fmt.Sprintf("rc-%s", uuid.New().String()[:13]),
	}
	if err := s.chainerRepo.Create(ch); err != nil {
		// The unique (user, campaign) index rejects a concurrent join; fall
		// back to the row that won.
		if existing, lookupErr := s.chainerRepo.GetByUserAndCampaign(userID, campaignID); lookupErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	log.Printf("[chainer] user %d joined campaign %d as chainer %d", userID, campaignID, ch.ID)
	return ch, true, nil
}

// ListForUser returns all chainer rows for the user across campaigns.
func (s *ChainerService) ListForUser(userID uint) ([]models.Chainer, error) {
	return s.chainerRepo.ListByUser(userID)
}
