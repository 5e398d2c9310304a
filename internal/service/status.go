package service

import (
	"fmt"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/models"
)

// Retry policy for donations. A donation stops being retryable once it has
// used its attempts or aged out, whatever the provider last reported.
const (
	MaxRetryAttempts = 3
	MaxPendingAge    = 7 * 24 * time.Hour
	RetryCooldown    = 24 * time.Hour
)

// DonationState is the engine's view of where a donation stands, derived
// from its stored record rather than the provider's last word.
type DonationState string

const (
	// StatePending: still waiting on the provider, within age and attempt budget.
	StatePending DonationState = "pending"
	// StateRetryable: failed, but eligible for another attempt.
	StateRetryable DonationState = "retryable_failed"
	// StateTerminal: failed for good; no further attempts.
	StateTerminal DonationState = "terminally_failed"
	// StateSettled: reached COMPLETED or REFUNDED.
	StateSettled DonationState = "settled"
)

// Classify derives the donation's current state at the given instant.
func Classify(d *models.Donation, now time.Time) DonationState {
	switch d.PaymentStatus {
	case domain.DonationCompleted, domain.DonationRefunded:
		return StateSettled
	case domain.DonationCanceled:
		return StateTerminal
	}
	exhausted := d.RetryAttempts >= MaxRetryAttempts || now.Sub(d.CreatedAt) >= MaxPendingAge
	if d.PaymentStatus == domain.DonationPending {
		if exhausted {
			return StateTerminal
		}
		return StatePending
	}
	// FAILED: attempt/age budget trumps the failure reason, and a
	// non-retryable reason trumps everything else.
	if exhausted || !domain.RetryableFailure(d.FailureReason) {
		return StateTerminal
	}
	return StateRetryable
}

// RetryEligible reports whether a failed donation may be retried right now:
// classified retryable and past the cooldown since its last status change.
func RetryEligible(d *models.Donation, now time.Time) bool {
	if Classify(d, now) != StateRetryable {
		return false
	}
	return now.Sub(d.LastStatusUpdate) >= RetryCooldown
}

// StatusMessage is the donor-facing description of a donation's state.
// Admins additionally see the raw failure reason and retry counters.
func StatusMessage(d *models.Donation, now time.Time) string {
	switch d.PaymentStatus {
	case domain.DonationCompleted:
		return "Your donation was received. Thank you!"
	case domain.DonationRefunded:
		return "Your donation has been refunded."
	case domain.DonationCanceled:
		return "This donation was cancelled."
	}
	switch Classify(d, now) {
	case StatePending:
		return "Your donation is being processed."
	case StateRetryable:
		return fmt.Sprintf("%s We will retry automatically.", domain.FailureMessage(d.FailureReason))
	default:
		return domain.FailureMessage(d.FailureReason)
	}
}
