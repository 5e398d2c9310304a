package domain

import "math"

// Donation payment statuses.
const (
	DonationPending   = "PENDING"
	DonationCompleted = "COMPLETED"
	DonationFailed    = "FAILED"
	DonationRefunded  = "REFUNDED"
	DonationCanceled  = "CANCELED"
)

// Campaign statuses.
const (
	CampaignActive      = "ACTIVE"
	CampaignGoalReached = "GOAL_REACHED"
	CampaignExpired     = "EXPIRED"
	CampaignPaused      = "PAUSED"
	CampaignClosed      = "CLOSED"
)

// Chainer statuses.
const (
	ChainerActive    = "ACTIVE"
	ChainerSuspended = "SUSPENDED"
	ChainerBanned    = "BANNED"
)

// Payout statuses. PAID is terminal for commission payouts,
// COMPLETED is terminal for campaign payouts.
const (
	PayoutPending   = "PENDING"
	PayoutApproved  = "APPROVED"
	PayoutPaid      = "PAID"
	PayoutCompleted = "COMPLETED"
	PayoutRejected  = "REJECTED"
	PayoutFailed    = "FAILED"
)

// Commission destinations.
const (
	DestinationKeep   = "KEEP"
	DestinationDonate = "DONATE"
)

const (
	RoleAdmin   = "ADMIN"
	RoleCreator = "CREATOR"
	RoleDonor   = "DONOR"
)

// Payment providers.
const (
	ProviderStripe   = "stripe"
	ProviderPaystack = "paystack"
)

var supportedCurrencies = map[string]bool{
	"NGN": true,
	"KES": true,
	"GHS": true,
	"ZAR": true,
	"USD": true,
	"EUR": true,
	"GBP": true,
}

func SupportedCurrency(code string) bool {
	return supportedCurrencies[code]
}

// DurationDays maps a campaign duration label to a fixed day count.
// Unknown labels (including "Not applicable") mean no expiry.
func DurationDays(label string) (int, bool) {
	switch label {
	case "1 week":
		return 7, true
	case "2 weeks":
		return 14, true
	case "1 month":
		return 30, true
	case "1 year":
		return 365, true
	}
	return 0, false
}

// FeeSchedule is the percentage + fixed component a payout provider charges.
type FeeSchedule struct {
	Percent    float64
	FixedCents int64
}

var payoutFees = map[string]FeeSchedule{
	ProviderPaystack: {Percent: 1.5, FixedCents: 10000}, // 1.5% + NGN 100 in kobo
	ProviderStripe:   {Percent: 2.9, FixedCents: 30},
}

// PayoutFee computes the provider fee for a gross amount in minor units,
// rounding the percentage component half-up. ok is false for an unknown provider.
func PayoutFee(provider string, amountCents int64) (fee int64, ok bool) {
	s, ok := payoutFees[provider]
	if !ok {
		return 0, false
	}
	bp := int64(math.Round(s.Percent * 100))
	return (amountCents*bp+5000)/10000 + s.FixedCents, true
}
