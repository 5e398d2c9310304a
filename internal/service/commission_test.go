package service

import "testing"

func TestComputeCommission(t *testing.T) {
	cases := []struct {
		name   string
		amount int64
		rate   float64
		want   int64
	}{
		{"five percent", 1000000, 5, 50000},
		{"five percent of 10000 NGN in kobo", 1000000, 5, 50000},
		{"fractional rate", 10000, 2.5, 250},
		{"rounds half up", 101, 2.5, 3}, // 2.525 -> 3
		{"rounds down below half", 100, 0.4, 0},
		{"rounds up at half", 125, 0.4, 1}, // 0.5 -> 1
		{"zero amount", 0, 5, 0},
		{"negative amount", -500, 5, 0},
		{"zero rate", 1000, 0, 0},
		{"negative rate", 1000, -1, 0},
		{"one kobo at tiny rate", 1, 0.01, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeCommission(tc.amount, tc.rate); got != tc.want {
				t.Errorf("ComputeCommission(%d, %v) = %d, want %d", tc.amount, tc.rate, got, tc.want)
			}
		})
	}
}

func TestComputeCommissionNeverExceedsAmount(t *testing.T) {
	for _, amount := range []int64{1, 99, 100, 12345, 1000000} {
		if got := ComputeCommission(amount, 100); got > amount {
			t.Errorf("ComputeCommission(%d, 100) = %d exceeds amount", amount, got)
		}
	}
}
