package service

import "math"

// ComputeCommission returns the chainer commission for a donation amount in
// minor units at the campaign's commission rate (percent, possibly
// fractional). Rounding is half-up at minor-unit precision, done in integer
// basis points so float error cannot shift a boundary.
func ComputeCommission(amountCents int64, ratePercent float64) int64 {
	if amountCents <= 0 || ratePercent <= 0 {
		return 0
	}
	bp := int64(math.Round(ratePercent * 100))
	return (amountCents*bp + 5000) / 10000
}
