package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/models"
	"chainfund/internal/repository"
	"chainfund/pkg/payment"

	"gorm.io/gorm"
)

// ReconcileService maps verified provider events onto donation, ledger and
// commission state. Every financial transition inside it is a status-guarded
// update, so replayed deliveries degrade to acknowledged no-ops. Errors are
// split two ways: persistence of the core financial transition propagates
// (the provider must redeliver), everything downstream of it is logged and
// swallowed.
type ReconcileService struct {
	db             *gorm.DB
	donationRepo   *repository.DonationRepository
	campaignRepo   *repository.CampaignRepository
	chainerRepo    *repository.ChainerRepository
	commissionRepo *repository.CommissionPayoutRepository
	auditRepo      *repository.AuditLogRepository
	lifecycle      *LifecycleService
	notifSvc       *NotificationService
}

func NewReconcileService(
	db *gorm.DB,
	donationRepo *repository.DonationRepository,
	campaignRepo *repository.CampaignRepository,
	chainerRepo *repository.ChainerRepository,
	commissionRepo *repository.CommissionPayoutRepository,
	auditRepo *repository.AuditLogRepository,
	lifecycle *LifecycleService,
	notifSvc *NotificationService,
) *ReconcileService {
	return &ReconcileService{
		db:             db,
		donationRepo:   donationRepo,
		campaignRepo:   campaignRepo,
		chainerRepo:    chainerRepo,
		commissionRepo: commissionRepo,
		auditRepo:      auditRepo,
		lifecycle:      lifecycle,
		notifSvc:       notifSvc,
	}
}

// HandlePaymentSucceeded completes a donation and credits the campaign
// ledger in one transaction, then runs the commission flow and lifecycle
// evaluation. A returned error means the core transition could not be
// persisted and the webhook must be redelivered.
func (s *ReconcileService) HandlePaymentSucceeded(ev *payment.WebhookEvent) error {
	d, err := s.donationRepo.GetByProviderRef(ev.Reference)
	if errors.Is(err, repository.ErrDonationNotFound) {
		log.Printf("[reconcile] no donation for reference=%s, acknowledging", ev.Reference)
		return nil
	}
	if err != nil {
		return err
	}
	if d.ProcessedAt != nil {
		log.Printf("[reconcile] donation %d already processed for reference=%s", d.ID, ev.Reference)
		return nil
	}
	now := time.Now()
	var applied bool
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		applied, txErr = repository.NewDonationRepository(tx).MarkCompleted(d.ID, now)
		if txErr != nil || !applied {
			return txErr
		}
		return repository.NewCampaignRepository(tx).IncrementRaised(d.CampaignID, d.AmountCents)
	})
	if err != nil {
		return fmt.Errorf("complete donation %d: %w", d.ID, err)
	}
	if !applied {
		log.Printf("[reconcile] donation %d not in PENDING, replay no-op for reference=%s", d.ID, ev.Reference)
		return nil
	}
	log.Printf("[reconcile] donation %d COMPLETED, campaign %d credited %d %s", d.ID, d.CampaignID, d.AmountCents, d.Currency)

	// Everything below is downstream of the financial transition: failures
	// are logged, the webhook is still acknowledged.
	s.grantCommissions(d, now)
	if err := s.lifecycle.Evaluate(d.CampaignID, now); err != nil {
		log.Printf("[reconcile] lifecycle evaluation for campaign %d failed (sweep will retry): %v", d.CampaignID, err)
	}
	s.notifSvc.NotifyDonationCompleted(d.DonorID, d.ID, d.AmountCents, d.Currency)
	s.audit("donation_completed", d, "")
	return nil
}

// HandlePaymentFailed records the failure with a mapped reason and counts
// the attempt.
func (s *ReconcileService) HandlePaymentFailed(ev *payment.WebhookEvent) error {
	d, err := s.donationRepo.GetByProviderRef(ev.Reference)
	if errors.Is(err, repository.ErrDonationNotFound) {
		log.Printf("[reconcile] no donation for reference=%s, acknowledging", ev.Reference)
		return nil
	}
	if err != nil {
		return err
	}
	reason := domain.MapProviderFailure(ev.FailureCode)
	applied, err := s.donationRepo.MarkFailed(d.ID, reason, time.Now())
	if err != nil {
		return fmt.Errorf("fail donation %d: %w", d.ID, err)
	}
	if !applied {
		log.Printf("[reconcile] donation %d already %s, replay no-op", d.ID, d.PaymentStatus)
		return nil
	}
	log.Printf("[reconcile] donation %d FAILED reason=%s (provider code %q)", d.ID, reason, ev.FailureCode)
	s.notifSvc.NotifyDonationFailed(d.DonorID, d.ID, domain.FailureMessage(reason))
	s.audit("donation_failed", d, reason)
	return nil
}

// HandlePaymentCanceled marks a donation the donor abandoned.
func (s *ReconcileService) HandlePaymentCanceled(ev *payment.WebhookEvent) error {
	d, err := s.donationRepo.GetByProviderRef(ev.Reference)
	if errors.Is(err, repository.ErrDonationNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	applied, err := s.donationRepo.MarkCanceled(d.ID, time.Now())
	if err != nil {
		return fmt.Errorf("cancel donation %d: %w", d.ID, err)
	}
	if applied {
		log.Printf("[reconcile] donation %d CANCELED", d.ID)
		s.audit("donation_canceled", d, "")
	}
	return nil
}

// HandleRefund reverses a completed donation: status flip and compensating
// ledger decrement in one transaction. Campaign lifecycle is not re-opened
// by a refund; a goal once reached stays reached.
func (s *ReconcileService) HandleRefund(ev *payment.WebhookEvent) error {
	d, err := s.donationRepo.GetByProviderRef(ev.Reference)
	if errors.Is(err, repository.ErrDonationNotFound) {
		log.Printf("[reconcile] no donation for refund reference=%s, acknowledging", ev.Reference)
		return nil
	}
	if err != nil {
		return err
	}
	now := time.Now()
	var applied bool
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		applied, txErr = repository.NewDonationRepository(tx).MarkRefunded(d.ID, now)
		if txErr != nil || !applied {
			return txErr
		}
		return repository.NewCampaignRepository(tx).DecrementRaised(d.CampaignID, d.AmountCents)
	})
	if err != nil {
		return fmt.Errorf("refund donation %d: %w", d.ID, err)
	}
	if !applied {
		log.Printf("[reconcile] donation %d not COMPLETED, refund replay no-op", d.ID)
		return nil
	}
	log.Printf("[reconcile] donation %d REFUNDED, campaign %d debited %d %s", d.ID, d.CampaignID, d.AmountCents, d.Currency)
	s.notifSvc.NotifyDonationRefunded(d.DonorID, d.ID)
	s.audit("donation_refunded", d, "")
	return nil
}

// grantCommissions runs the commission flow for a just-completed donation:
// a direct-referral grant to the chainer whose link brought the donation,
// and an independent self-referral grant when the donor is also a chainer on
// the campaign. Both use the same formula and both may fire for a single
// donation. Nothing here is fatal to the donation completion.
func (s *ReconcileService) grantCommissions(d *models.Donation, now time.Time) {
	c, err := s.campaignRepo.GetByID(d.CampaignID)
	if err != nil {
		log.Printf("[commission] campaign %d lookup failed, skipping: %v", d.CampaignID, err)
		return
	}
	if !c.IsChained || c.ChainerCommissionRate <= 0 {
		return
	}
	commission := ComputeCommission(d.AmountCents, c.ChainerCommissionRate)
	if commission <= 0 {
		return
	}

	var directID uint
	if d.ChainerID != nil {
		directID = *d.ChainerID
		s.grantDirect(directID, d, commission)
	}

	self, err := s.chainerRepo.GetByUserAndCampaign(d.DonorID, d.CampaignID)
	if errors.Is(err, repository.ErrChainerNotFound) {
		return
	}
	if err != nil {
		log.Printf("[commission] self-referral lookup for donor %d failed, skipping: %v", d.DonorID, err)
		return
	}
	if self.ID == directID {
		// Donor donated through their own link; the direct grant already
		// covers this chainer and the grant key would collide anyway.
		return
	}
	s.grantSelf(self, d, commission)
}

func (s *ReconcileService) grantDirect(chainerID uint, d *models.Donation, commission int64) {
	ch, err := s.chainerRepo.GetByID(chainerID)
	if err != nil {
		log.Printf("[commission] chainer %d lookup failed, skipping grant for donation %d: %v", chainerID, d.ID, err)
		return
	}
	if ch.Status != domain.ChainerActive {
		log.Printf("[commission] chainer %d is %s, skipping grant for donation %d", ch.ID, ch.Status, d.ID)
		return
	}
	var created bool
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		_, created, txErr = repository.NewCommissionPayoutRepository(tx).CreateGrant(
			ch.ID, d.ID, d.CampaignID, commission, d.Currency, ch.CommissionDestination,
			fmt.Sprintf("direct referral commission for donation %d", d.ID))
		if txErr != nil || !created {
			return txErr
		}
		return repository.NewChainerRepository(tx).ApplyDonation(ch.ID, d.AmountCents, commission)
	})
	if err != nil {
		log.Printf("[commission] direct grant for donation %d chainer %d failed: %v", d.ID, ch.ID, err)
		return
	}
	if !created {
		log.Printf("[commission] direct grant for donation %d chainer %d already exists", d.ID, ch.ID)
		return
	}
	log.Printf("[commission] chainer %d granted %d %s for donation %d", ch.ID, commission, d.Currency, d.ID)
	s.notifSvc.NotifyCommissionEarned(ch.UserID, d.CampaignID, commission, d.Currency)
}

func (s *ReconcileService) grantSelf(ch *models.Chainer, d *models.Donation, commission int64) {
	if ch.Status != domain.ChainerActive {
		log.Printf("[commission] self-referral chainer %d is %s, skipping grant for donation %d", ch.ID, ch.Status, d.ID)
		return
	}
	var created bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		_, created, txErr = repository.NewCommissionPayoutRepository(tx).CreateGrant(
			ch.ID, d.ID, d.CampaignID, commission, d.Currency, ch.CommissionDestination,
			fmt.Sprintf("self-referral commission for donation %d", d.ID))
		if txErr != nil || !created {
			return txErr
		}
		return repository.NewChainerRepository(tx).ApplySelfCommission(ch.ID, commission)
	})
	if err != nil {
		log.Printf("[commission] self-referral grant for donation %d chainer %d failed: %v", d.ID, ch.ID, err)
		return
	}
	if !created {
		return
	}
	log.Printf("[commission] chainer %d granted self-referral %d %s for donation %d", ch.ID, commission, d.Currency, d.ID)
	s.notifSvc.NotifyCommissionEarned(ch.UserID, d.CampaignID, commission, d.Currency)
}

func (s *ReconcileService) audit(action string, d *models.Donation, detail string) {
	if s.auditRepo == nil {
		return
	}
	uid := d.DonorID
	if err := s.auditRepo.Create(&models.AuditLog{
		UserID:     &uid,
		Action:     action,
		Resource:   "donation",
		ResourceID: d.ProviderRef,
		Detail:     detail,
	}); err != nil {
		log.Printf("[audit] %s for donation %d failed: %v", action, d.ID, err)
	}
}
