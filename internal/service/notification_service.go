package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"chainfund/internal/models"
	"chainfund/internal/repository"
)

// NotificationService records best-effort in-app notifications. Delivery to
// external channels (email/push) is someone else's job; every call here is
// fire-and-forget with a timeout budget, and a failure is logged, never
// surfaced to the financial operation that triggered it.
type NotificationService struct {
	repo    *repository.NotificationRepository
	timeout time.Duration
}

func NewNotificationService(repo *repository.NotificationRepository, timeout time.Duration) *NotificationService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationService{repo: repo, timeout: timeout}
}

func (s *NotificationService) notify(userID uint, notifType, title, body string, data map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.repo.Create(ctx, &models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	})
	if err != nil {
		log.Printf("[notify] failed to record %s for user %d: %v", notifType, userID, err)
	}
}

func (s *NotificationService) NotifyDonationCompleted(donorID uint, donationID uint, amountCents int64, currency string) {
	s.notify(donorID, "DONATION_COMPLETED", "Donation received",
		"Your donation was received. Thank you!",
		map[string]interface{}{"donation_id": donationID, "amount_cents": amountCents, "currency": currency})
}

func (s *NotificationService) NotifyDonationFailed(donorID uint, donationID uint, message string) {
	s.notify(donorID, "DONATION_FAILED", "Donation failed", message,
		map[string]interface{}{"donation_id": donationID})
}

func (s *NotificationService) NotifyDonationRefunded(donorID uint, donationID uint) {
	s.notify(donorID, "DONATION_REFUNDED", "Donation refunded",
		"Your donation has been refunded.",
		map[string]interface{}{"donation_id": donationID})
}

func (s *NotificationService) NotifyCommissionEarned(userID uint, campaignID uint, amountCents int64, currency string) {
	s.notify(userID, "COMMISSION_EARNED", "Commission earned",
		fmt.Sprintf("You earned a commission of %d %s.", amountCents, currency),
		map[string]interface{}{"campaign_id": campaignID, "amount_cents": amountCents})
}

func (s *NotificationService) NotifyGoalReached(creatorID uint, campaignID uint, title string) {
	s.notify(creatorID, "GOAL_REACHED", "Goal reached",
		fmt.Sprintf("Your campaign %q reached its goal.", title),
		map[string]interface{}{"campaign_id": campaignID})
}

func (s *NotificationService) NotifyPayoutCompleted(userID uint, reference string, netCents int64, currency string) {
	s.notify(userID, "PAYOUT_COMPLETED", "Payout completed",
		fmt.Sprintf("Your payout of %d %s was sent.", netCents, currency),
		map[string]interface{}{"reference": reference})
}

func (s *NotificationService) NotifyPayoutFailed(userID uint, reference, reason string) {
	s.notify(userID, "PAYOUT_FAILED", "Payout failed",
		"Your payout could not be completed. "+reason,
		map[string]interface{}{"reference": reference})
}
