package service

import (
	"log"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/models"
	"chainfund/internal/repository"
)

// GoalReachedWindow is the grace period between a campaign hitting its goal
// and its automatic closure.
const GoalReachedWindow = 28 * 24 * time.Hour

// Typed reasons a campaign refuses donations or chain joins.
const (
	RejectGoalReached = "goal_reached"
	RejectExpired     = "expired"
	RejectClosed      = "closed"
	RejectPaused      = "paused"
)

// AcceptanceError rejects a donation or chain-join attempt against a
// campaign that is not accepting them.
type AcceptanceError struct {
	Reason string
}

func (e *AcceptanceError) Error() string {
	return "campaign not accepting donations: " + e.Reason
}

// LifecycleService owns campaign state transitions. Every transition is a
// status-guarded update, so re-running an evaluation is always safe.
type LifecycleService struct {
	campaignRepo *repository.CampaignRepository
	notifSvc     *NotificationService
}

func NewLifecycleService(campaignRepo *repository.CampaignRepository, notifSvc *NotificationService) *LifecycleService {
	return &LifecycleService{campaignRepo: campaignRepo, notifSvc: notifSvc}
}

// ExpiresAt returns when the campaign's duration elapses. ok is false when
// the campaign has no expiry.
func ExpiresAt(c *models.Campaign) (time.Time, bool) {
	days, ok := domain.DurationDays(c.Duration)
	if !ok {
		return time.Time{}, false
	}
	return c.CreatedAt.Add(time.Duration(days) * 24 * time.Hour), true
}

// Expired reports whether the campaign's duration has elapsed at the given
// instant. The boundary is inclusive: a campaign created exactly its
// duration ago is expired.
func Expired(c *models.Campaign, now time.Time) bool {
	at, ok := ExpiresAt(c)
	if !ok {
		return false
	}
	return !now.Before(at)
}

// CheckAcceptance decides whether the campaign accepts a donation or
// chain-join attempt right now. Expiry is computed from the stored duration,
// not the stored status, so a campaign the sweep has not flipped yet is
// still rejected.
func CheckAcceptance(c *models.Campaign, now time.Time) error {
	switch c.Status {
	case domain.CampaignGoalReached:
		return &AcceptanceError{Reason: RejectGoalReached}
	case domain.CampaignExpired:
		return &AcceptanceError{Reason: RejectExpired}
	case domain.CampaignClosed:
		return &AcceptanceError{Reason: RejectClosed}
	case domain.CampaignPaused:
		return &AcceptanceError{Reason: RejectPaused}
	}
	if Expired(c, now) {
		return &AcceptanceError{Reason: RejectExpired}
	}
	return nil
}

// Evaluate re-reads the campaign and applies any due transition. Called
// synchronously after every ledger mutation and again by the periodic sweep,
// so a crash between ledger write and evaluation only delays the transition.
func (s *LifecycleService) Evaluate(campaignID uint, now time.Time) error {
	c, err := s.campaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if c.Status != domain.CampaignActive {
		return nil
	}
	if c.CurrentAmountCents >= c.GoalAmountCents {
		applied, err := s.campaignRepo.MarkGoalReached(c.ID, now, now.Add(GoalReachedWindow))
		if err != nil {
			return err
		}
		if applied {
			log.Printf("[lifecycle] campaign %d reached goal (%d/%d), auto-close at %s",
				c.ID, c.CurrentAmountCents, c.GoalAmountCents, now.Add(GoalReachedWindow).Format(time.RFC3339))
			if s.notifSvc != nil {
				s.notifSvc.NotifyGoalReached(c.CreatorID, c.ID, c.Title)
			}
		}
		return nil
	}
	if Expired(c, now) {
		applied, err := s.campaignRepo.MarkExpired(c.ID)
		if err != nil {
			return err
		}
		if applied {
			log.Printf("[lifecycle] campaign %d expired (duration %q)", c.ID, c.Duration)
		}
	}
	return nil
}

// Close is the manual close edge, allowed from every state except CLOSED
// (idempotent no-op there, including the expired -> closed edge).
func (s *LifecycleService) Close(campaignID uint, now time.Time) (bool, error) {
	applied, err := s.campaignRepo.Close(campaignID, now)
	if err != nil {
		return false, err
	}
	if applied {
		log.Printf("[lifecycle] campaign %d closed manually", campaignID)
	}
	return applied, nil
}

// Pause is the exogenous admin-set transition; the evaluator never enters
// or exits PAUSED on its own.
func (s *LifecycleService) Pause(campaignID uint) (bool, error) {
	applied, err := s.campaignRepo.Pause(campaignID)
	if err != nil {
		return false, err
	}
	if applied {
		log.Printf("[lifecycle] campaign %d paused", campaignID)
	}
	return applied, nil
}
