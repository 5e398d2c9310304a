package service

import (
	"errors"
	"testing"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/models"
	"chainfund/internal/repository"
	"chainfund/internal/testutil"
)

func TestExpiredBoundaryIsInclusive(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := &models.Campaign{Duration: "1 week"}
	c.CreatedAt = created
	exactly := created.Add(7 * 24 * time.Hour)

	if Expired(c, exactly.Add(-time.Second)) {
		t.Error("one second before the boundary should not be expired")
	}
	if !Expired(c, exactly) {
		t.Error("exactly at the boundary should be expired")
	}
	if !Expired(c, exactly.Add(time.Second)) {
		t.Error("one second past the boundary should be expired")
	}
}

func TestExpiredWithoutDuration(t *testing.T) {
	c := &models.Campaign{Duration: "Not applicable"}
	c.CreatedAt = time.Now().Add(-10 * 365 * 24 * time.Hour)
	if Expired(c, time.Now()) {
		t.Error("campaign without a recognized duration never expires")
	}
}

func TestCheckAcceptance(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name   string
		status string
		reason string
	}{
		{"goal reached", domain.CampaignGoalReached, RejectGoalReached},
		{"expired", domain.CampaignExpired, RejectExpired},
		{"closed", domain.CampaignClosed, RejectClosed},
		{"paused", domain.CampaignPaused, RejectPaused},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &models.Campaign{Status: tc.status}
			err := CheckAcceptance(c, now)
			var accErr *AcceptanceError
			if !errors.As(err, &accErr) || accErr.Reason != tc.reason {
				t.Errorf("CheckAcceptance = %v, want reason %s", err, tc.reason)
			}
		})
	}

	active := &models.Campaign{Status: domain.CampaignActive}
	active.CreatedAt = now
	if err := CheckAcceptance(active, now); err != nil {
		t.Errorf("active campaign should accept: %v", err)
	}
}

// An ACTIVE campaign whose duration elapsed is rejected even before the sweep
// flips its stored status.
func TestCheckAcceptanceDynamicExpiry(t *testing.T) {
	now := time.Now()
	c := &models.Campaign{Status: domain.CampaignActive, Duration: "1 week"}
	c.CreatedAt = now.Add(-8 * 24 * time.Hour)
	err := CheckAcceptance(c, now)
	var accErr *AcceptanceError
	if !errors.As(err, &accErr) || accErr.Reason != RejectExpired {
		t.Errorf("CheckAcceptance = %v, want expired rejection", err)
	}
}

func TestEvaluateGoalReached(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCampaignRepository(db)
	svc := NewLifecycleService(repo, nil)

	c := testutil.Campaign(t, db, 100000, 0)
	if err := repo.IncrementRaised(c.ID, 100000); err != nil {
		t.Fatalf("increment: %v", err)
	}
	now := time.Now()
	if err := svc.Evaluate(c.ID, now); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	got, err := repo.GetByID(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.CampaignGoalReached {
		t.Fatalf("status = %s, want GOAL_REACHED", got.Status)
	}
	if got.GoalReachedAt == nil || got.AutoCloseAt == nil {
		t.Fatal("goal_reached_at and auto_close_at should be set")
	}
	wantClose := now.Add(GoalReachedWindow)
	if diff := got.AutoCloseAt.Sub(wantClose); diff < -time.Second || diff > time.Second {
		t.Errorf("auto_close_at = %v, want ~%v", got.AutoCloseAt, wantClose)
	}

	// Second evaluation is a no-op, not a second transition.
	firstReachedAt := *got.GoalReachedAt
	if err := svc.Evaluate(c.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	again, _ := repo.GetByID(c.ID)
	if !again.GoalReachedAt.Equal(firstReachedAt) {
		t.Error("re-evaluation must not move goal_reached_at")
	}
}

func TestEvaluateGoalBeatsExpiry(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCampaignRepository(db)
	svc := NewLifecycleService(repo, nil)

	c := testutil.Campaign(t, db, 50000, 0)
	if err := db.Model(&models.Campaign{}).Where("id = ?", c.ID).
		Updates(map[string]interface{}{"duration": "1 week", "created_at": time.Now().Add(-8 * 24 * time.Hour)}).Error; err != nil {
		t.Fatal(err)
	}
	if err := repo.IncrementRaised(c.ID, 60000); err != nil {
		t.Fatal(err)
	}

	if err := svc.Evaluate(c.ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetByID(c.ID)
	if got.Status != domain.CampaignGoalReached {
		t.Errorf("status = %s, want GOAL_REACHED (goal wins over expiry)", got.Status)
	}
}

func TestEvaluateExpiry(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCampaignRepository(db)
	svc := NewLifecycleService(repo, nil)

	c := testutil.Campaign(t, db, 100000, 0)
	if err := db.Model(&models.Campaign{}).Where("id = ?", c.ID).
		Updates(map[string]interface{}{"duration": "1 week", "created_at": time.Now().Add(-8 * 24 * time.Hour)}).Error; err != nil {
		t.Fatal(err)
	}

	if err := svc.Evaluate(c.ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetByID(c.ID)
	if got.Status != domain.CampaignExpired {
		t.Errorf("status = %s, want EXPIRED", got.Status)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCampaignRepository(db)
	svc := NewLifecycleService(repo, nil)

	c := testutil.Campaign(t, db, 100000, 0)
	applied, err := svc.Close(c.ID, time.Now())
	if err != nil || !applied {
		t.Fatalf("first close = (%v, %v), want applied", applied, err)
	}
	applied, err = svc.Close(c.ID, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Error("second close should be a no-op")
	}
}

func TestCloseFromExpired(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCampaignRepository(db)
	svc := NewLifecycleService(repo, nil)

	c := testutil.Campaign(t, db, 100000, 0)
	if _, err := repo.MarkExpired(c.ID); err != nil {
		t.Fatal(err)
	}
	applied, err := svc.Close(c.ID, time.Now())
	if err != nil || !applied {
		t.Fatalf("close from EXPIRED = (%v, %v), want applied", applied, err)
	}
	got, _ := repo.GetByID(c.ID)
	if got.Status != domain.CampaignClosed {
		t.Errorf("status = %s, want CLOSED", got.Status)
	}
}

func TestPauseOnlyFromActive(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCampaignRepository(db)
	svc := NewLifecycleService(repo, nil)

	c := testutil.Campaign(t, db, 100000, 0)
	applied, err := svc.Pause(c.ID)
	if err != nil || !applied {
		t.Fatalf("pause active = (%v, %v), want applied", applied, err)
	}
	applied, err = svc.Pause(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Error("pausing a paused campaign should be a no-op")
	}
}
