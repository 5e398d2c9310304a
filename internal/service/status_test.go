package service

import (
	"testing"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/models"
)

func donationAt(status, reason string, attempts int, createdAgo time.Duration, now time.Time) *models.Donation {
	return &models.Donation{
		PaymentStatus:    status,
		FailureReason:    reason,
		RetryAttempts:    attempts,
		CreatedAt:        now.Add(-createdAgo),
		LastStatusUpdate: now.Add(-createdAgo),
	}
}

func TestClassify(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		d    *models.Donation
		want DonationState
	}{
		{"completed is settled", donationAt(domain.DonationCompleted, "", 0, time.Hour, now), StateSettled},
		{"refunded is settled", donationAt(domain.DonationRefunded, "", 0, time.Hour, now), StateSettled},
		{"canceled is terminal", donationAt(domain.DonationCanceled, domain.FailureUserCancelled, 0, time.Hour, now), StateTerminal},
		{"fresh pending", donationAt(domain.DonationPending, "", 0, time.Hour, now), StatePending},
		{"pending aged out", donationAt(domain.DonationPending, "", 0, MaxPendingAge, now), StateTerminal},
		{"pending just under age", donationAt(domain.DonationPending, "", 0, MaxPendingAge-time.Second, now), StatePending},
		{"retryable failure", donationAt(domain.DonationFailed, domain.FailureCardDeclined, 1, time.Hour, now), StateRetryable},
		{"non-retryable failure", donationAt(domain.DonationFailed, domain.FailureFraudDetected, 1, time.Hour, now), StateTerminal},
		{"retryable but attempts exhausted", donationAt(domain.DonationFailed, domain.FailureCardDeclined, MaxRetryAttempts, time.Hour, now), StateTerminal},
		{"retryable but aged out", donationAt(domain.DonationFailed, domain.FailureTimeout, 1, MaxPendingAge, now), StateTerminal},
		{"unknown reason treated retryable", donationAt(domain.DonationFailed, "some_new_code", 0, time.Hour, now), StateRetryable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.d, now); got != tc.want {
				t.Errorf("Classify() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRetryEligible(t *testing.T) {
	now := time.Now()

	d := donationAt(domain.DonationFailed, domain.FailureTimeout, 1, 2*time.Hour, now)
	d.LastStatusUpdate = now.Add(-RetryCooldown)
	if !RetryEligible(d, now) {
		t.Error("failure past cooldown should be eligible")
	}

	d.LastStatusUpdate = now.Add(-RetryCooldown + time.Minute)
	if RetryEligible(d, now) {
		t.Error("failure inside cooldown should not be eligible")
	}

	terminal := donationAt(domain.DonationFailed, domain.FailureFraudDetected, 1, 48*time.Hour, now)
	if RetryEligible(terminal, now) {
		t.Error("terminal failure should never be eligible")
	}
}

func TestStatusMessageHidesRawReason(t *testing.T) {
	now := time.Now()
	d := donationAt(domain.DonationFailed, domain.FailureCardDeclined, 1, time.Hour, now)
	msg := StatusMessage(d, now)
	if msg == "" || msg == domain.FailureCardDeclined {
		t.Errorf("expected a human message, got %q", msg)
	}
}
