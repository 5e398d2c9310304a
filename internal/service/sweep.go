package service

import (
	"context"
	"log"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/repository"
)

// Sweeper is the periodic safety net behind the synchronous paths: it
// auto-closes goal-reached campaigns past their grace window, flips stored
// statuses for expired campaigns, terminally fails stale pending donations
// and reopens retry-eligible failures. Every step is an idempotent guarded
// update, so overlapping sweeps and webhook handlers cannot conflict.
type Sweeper struct {
	donationRepo *repository.DonationRepository
	campaignRepo *repository.CampaignRepository
	lifecycle    *LifecycleService
	interval     time.Duration
}

func NewSweeper(donationRepo *repository.DonationRepository, campaignRepo *repository.CampaignRepository, lifecycle *LifecycleService, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		donationRepo: donationRepo,
		campaignRepo: campaignRepo,
		lifecycle:    lifecycle,
		interval:     interval,
	}
}

// Run blocks until ctx is canceled, sweeping on every tick.
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("[sweep] running every %s", s.interval)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[sweep] stopped")
			return
		case <-t.C:
			s.SweepOnce(time.Now())
		}
	}
}

// SweepOnce runs a single pass at the given instant.
func (s *Sweeper) SweepOnce(now time.Time) {
	s.sweepAutoClose(now)
	s.sweepExpiry(now)
	s.sweepStalePending(now)
	s.sweepRetries(now)
}

func (s *Sweeper) sweepAutoClose(now time.Time) {
	due, err := s.campaignRepo.ListDueForAutoClose(now)
	if err != nil {
		log.Printf("[sweep] listing campaigns due for auto-close failed: %v", err)
		return
	}
	for _, c := range due {
		applied, err := s.campaignRepo.AutoClose(c.ID, now)
		if err != nil {
			log.Printf("[sweep] auto-close of campaign %d failed: %v", c.ID, err)
			continue
		}
		if applied {
			log.Printf("[sweep] campaign %d auto-closed after goal-reached window", c.ID)
		}
	}
}

func (s *Sweeper) sweepExpiry(now time.Time) {
	actives, err := s.campaignRepo.ListActiveWithDuration()
	if err != nil {
		log.Printf("[sweep] listing active campaigns failed: %v", err)
		return
	}
	for _, c := range actives {
		if !Expired(&c, now) {
			continue
		}
		// Evaluate handles the goal-beats-expiry edge: a campaign that
		// crossed its goal flips to GOAL_REACHED even if the sweep sees it
		// first.
		if err := s.lifecycle.Evaluate(c.ID, now); err != nil {
			log.Printf("[sweep] evaluating campaign %d failed: %v", c.ID, err)
		}
	}
}

func (s *Sweeper) sweepStalePending(now time.Time) {
	stale, err := s.donationRepo.ListStalePending(now.Add(-MaxPendingAge))
	if err != nil {
		log.Printf("[sweep] listing stale pending donations failed: %v", err)
		return
	}
	for _, d := range stale {
		applied, err := s.donationRepo.MarkTerminallyFailed(d.ID, domain.FailureTimeout, now)
		if err != nil {
			log.Printf("[sweep] failing stale donation %d failed: %v", d.ID, err)
			continue
		}
		if applied {
			log.Printf("[sweep] donation %d terminally failed after %s in PENDING", d.ID, MaxPendingAge)
		}
	}
}

func (s *Sweeper) sweepRetries(now time.Time) {
	candidates, err := s.donationRepo.ListRetryCandidates(MaxRetryAttempts)
	if err != nil {
		log.Printf("[sweep] listing retry candidates failed: %v", err)
		return
	}
	for _, d := range candidates {
		if !RetryEligible(&d, now) {
			continue
		}
		applied, err := s.donationRepo.ReopenForRetry(d.ID, now)
		if err != nil {
			log.Printf("[sweep] reopening donation %d failed: %v", d.ID, err)
			continue
		}
		if applied {
			log.Printf("[sweep] donation %d reopened for retry (attempt %d of %d)", d.ID, d.RetryAttempts, MaxRetryAttempts)
		}
	}
}
