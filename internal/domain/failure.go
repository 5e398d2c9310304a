package domain

import "strings"

// Failure reasons recorded on a donation or payout. These are our own
// vocabulary; provider decline codes are mapped onto them.
const (
	FailureCardDeclined      = "card_declined"
	FailureInsufficientFunds = "insufficient_funds"
	FailureTimeout           = "timeout"
	FailureBankError         = "bank_error"
	FailureTechnicalError    = "technical_error"
	FailureExpiredCard       = "expired_card"
	FailureInvalidDetails    = "invalid_details"
	FailureFraudDetected     = "fraud_detected"
	FailureAccountRestricted = "account_restricted"
	FailureUserCancelled     = "user_cancelled"
)

var retryableFailures = map[string]bool{
	FailureCardDeclined:      true,
	FailureInsufficientFunds: true,
	FailureTimeout:           true,
	FailureBankError:         true,
	FailureTechnicalError:    true,
}

// RetryableFailure reports whether a failure reason allows another attempt.
// Unknown reasons are treated as retryable technical errors.
func RetryableFailure(reason string) bool {
	if reason == "" {
		return true
	}
	if retryableFailures[reason] {
		return true
	}
	switch reason {
	case FailureExpiredCard, FailureInvalidDetails, FailureFraudDetected,
		FailureAccountRestricted, FailureUserCancelled:
		return false
	}
	return true
}

// MapProviderFailure maps a raw provider decline/failure code onto our
// failure vocabulary. Matching is by substring so that codes like
// "generic_decline", "card_declined - Do not honor" or
// "Insufficient Funds" all land in the right bucket.
func MapProviderFailure(code string) string {
	c := strings.ToLower(code)
	switch {
	case c == "":
		return FailureTechnicalError
	case strings.Contains(c, "insufficient"):
		return FailureInsufficientFunds
	case strings.Contains(c, "expired"):
		return FailureExpiredCard
	case strings.Contains(c, "fraud"), strings.Contains(c, "stolen"), strings.Contains(c, "lost_card"):
		return FailureFraudDetected
	case strings.Contains(c, "restricted"), strings.Contains(c, "blocked"):
		return FailureAccountRestricted
	case strings.Contains(c, "cancel"), strings.Contains(c, "abandon"):
		return FailureUserCancelled
	case strings.Contains(c, "timeout"), strings.Contains(c, "timed out"):
		return FailureTimeout
	case strings.Contains(c, "invalid"), strings.Contains(c, "incorrect"):
		return FailureInvalidDetails
	case strings.Contains(c, "bank"), strings.Contains(c, "issuer"):
		return FailureBankError
	case strings.Contains(c, "declin"), strings.Contains(c, "do not honor"), strings.Contains(c, "do_not_honor"):
		return FailureCardDeclined
	}
	return FailureTechnicalError
}

var failureMessages = map[string]string{
	FailureCardDeclined:      "Your card was declined. Please try again or use a different card.",
	FailureInsufficientFunds: "The payment could not be completed due to insufficient funds.",
	FailureTimeout:           "The payment timed out. Please try again.",
	FailureBankError:         "Your bank could not process the payment. Please try again later.",
	FailureTechnicalError:    "Something went wrong while processing the payment. Please try again.",
	FailureExpiredCard:       "The card used has expired. Please use a different card.",
	FailureInvalidDetails:    "The payment details provided were invalid.",
	FailureFraudDetected:     "The payment was blocked. Please contact support.",
	FailureAccountRestricted: "The payment account is restricted. Please contact your bank.",
	FailureUserCancelled:     "The payment was cancelled.",
}

// FailureMessage returns a donor-facing description of a failure reason.
// Admins see the raw reason; donors see this.
func FailureMessage(reason string) string {
	if m, ok := failureMessages[reason]; ok {
		return m
	}
	return failureMessages[FailureTechnicalError]
}
