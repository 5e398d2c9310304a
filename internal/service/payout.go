package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/models"
	"chainfund/internal/repository"
	"chainfund/pkg/payment"

	"github.com/google/uuid"
)

var (
	ErrInsufficientFunds   = errors.New("insufficient available balance")
	ErrUnsupportedProvider = errors.New("unsupported payout provider")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrCurrencyMismatch    = errors.New("currency does not match campaign currency")
	ErrPayoutConflict      = errors.New("a payout is already in flight for this campaign")
	ErrNotCampaignOwner    = errors.New("only the campaign creator can request a payout")
	ErrAmountTooSmall      = errors.New("amount does not cover provider fees")
	ErrNotApprovable       = errors.New("payout is not pending")
	ErrNotApproved         = errors.New("payout is not approved")
)

// BankDetails is the destination snapshot stored on a payout.
type BankDetails struct {
	BankName      string `json:"bank_name"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number" binding:"required"`
	AccountName   string `json:"account_name"`
}

// PayoutService turns approved payout records into provider transfers and
// reconciles transfer webhooks back onto them. The payout row is always
// persisted before the provider is called: a crash in between leaves a
// recoverable PENDING row, never an untracked transfer.
type PayoutService struct {
	campaignRepo       *repository.CampaignRepository
	campaignPayoutRepo *repository.CampaignPayoutRepository
	commissionRepo     *repository.CommissionPayoutRepository
	chainerRepo        *repository.ChainerRepository
	auditRepo          *repository.AuditLogRepository
	notifSvc           *NotificationService
	providers          map[string]payment.TransferProvider
}

func NewPayoutService(
	campaignRepo *repository.CampaignRepository,
	campaignPayoutRepo *repository.CampaignPayoutRepository,
	commissionRepo *repository.CommissionPayoutRepository,
	chainerRepo *repository.ChainerRepository,
	auditRepo *repository.AuditLogRepository,
	notifSvc *NotificationService,
	providers map[string]payment.TransferProvider,
) *PayoutService {
	return &PayoutService{
		campaignRepo:       campaignRepo,
		campaignPayoutRepo: campaignPayoutRepo,
		commissionRepo:     commissionRepo,
		chainerRepo:        chainerRepo,
		auditRepo:          auditRepo,
		notifSvc:           notifSvc,
		providers:          providers,
	}
}

// RequestCampaignPayout validates and persists a creator withdrawal, then
// dispatches the provider transfer. Validation order: ownership, provider,
// currency, available balance, single-payout-in-flight.
func (s *PayoutService) RequestCampaignPayout(ctx context.Context, userID, campaignID uint, amountCents int64, currency, provider string, bank BankDetails) (*models.CampaignPayout, error) {
	c, err := s.campaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if c.CreatorID != userID {
		return nil, ErrNotCampaignOwner
	}
	if _, ok := s.providers[provider]; !ok {
		return nil, ErrUnsupportedProvider
	}
	if !domain.SupportedCurrency(currency) {
		return nil, ErrUnsupportedCurrency
	}
	if currency != c.Currency {
		return nil, ErrCurrencyMismatch
	}
	fee, ok := domain.PayoutFee(provider, amountCents)
	if !ok {
		return nil, ErrUnsupportedProvider
	}
	net := amountCents - fee
	if amountCents <= 0 || net <= 0 {
		return nil, ErrAmountTooSmall
	}

	committed, err := s.campaignPayoutRepo.SumGrossNonFailed(campaignID)
	if err != nil {
		return nil, err
	}
	if amountCents > c.CurrentAmountCents-committed {
		return nil, ErrInsufficientFunds
	}
	open, err := s.campaignPayoutRepo.HasOpenForCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrPayoutConflict
	}

	p := &models.CampaignPayout{
		UserID:         userID,
		CampaignID:     campaignID,
		RequestedCents: amountCents,
		GrossCents:     amountCents,
		FeeCents:       fee,
		NetCents:       net,
		Currency:       currency,
		Status:         domain.PayoutPending,
		Provider:       provider,
		Reference:      fmt.Sprintf("po-%s", uuid.New().String()),
		BankName:       bank.BankName,
		AccountNumber:  bank.AccountNumber,
		AccountName:    bank.AccountName,
	}
	if err := s.campaignPayoutRepo.Create(p); err != nil {
		return nil, err
	}
	log.Printf("[payout] campaign payout %d created reference=%s gross=%d fee=%d net=%d", p.ID, p.Reference, p.GrossCents, p.FeeCents, p.NetCents)

	// Dispatch after persistence. A failure here leaves the PENDING row for
	// later redispatch; it never invalidates the request.
	resp, err := s.providers[provider].CreateTransfer(ctx, payment.TransferRequest{
		AmountCents:    net,
		Currency:       currency,
		AccountNumber:  bank.AccountNumber,
		BankCode:       bank.BankCode,
		AccountName:    bank.AccountName,
		Reference:      p.Reference,
		IdempotencyKey: p.Reference,
		Reason:         fmt.Sprintf("Campaign %d payout", campaignID),
		Metadata:       map[string]string{"kind": "campaign_payout"},
	})
	if err != nil {
		log.Printf("[payout] transfer dispatch for %s failed, leaving PENDING: %v", p.Reference, err)
		return p, nil
	}
	if err := s.campaignPayoutRepo.SetProviderRef(p.ID, resp.TransferID); err != nil {
		log.Printf("[payout] storing provider ref for %s failed: %v", p.Reference, err)
	}
	p.ProviderRef = resp.TransferID
	return p, nil
}

// ApproveCommissionPayout moves a pending grant to APPROVED and dispatches
// the provider transfer. The platform absorbs transfer fees on commissions;
// the chainer receives the full granted amount.
func (s *PayoutService) ApproveCommissionPayout(ctx context.Context, id uint, provider string, bank BankDetails) (*models.CommissionPayout, error) {
	if _, ok := s.providers[provider]; !ok {
		return nil, ErrUnsupportedProvider
	}
	applied, err := s.commissionRepo.Approve(id)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrNotApprovable
	}
	p, err := s.commissionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	log.Printf("[payout] commission payout %d approved reference=%s amount=%d", p.ID, p.Reference, p.AmountCents)

	resp, err := s.providers[provider].CreateTransfer(ctx, payment.TransferRequest{
		AmountCents:    p.AmountCents,
		Currency:       p.Currency,
		AccountNumber:  bank.AccountNumber,
		BankCode:       bank.BankCode,
		AccountName:    bank.AccountName,
		Reference:      p.Reference,
		IdempotencyKey: p.Reference,
		Reason:         fmt.Sprintf("Chainer commission payout %d", p.ID),
		Metadata:       map[string]string{"kind": "commission_payout"},
	})
	if err != nil {
		log.Printf("[payout] commission transfer dispatch for %s failed, leaving APPROVED: %v", p.Reference, err)
		return p, nil
	}
	if err := s.commissionRepo.MarkDispatched(p.ID, resp.TransferID); err != nil {
		log.Printf("[payout] storing transaction id for %s failed: %v", p.Reference, err)
	}
	p.TransactionID = resp.TransferID
	return p, nil
}

func (s *PayoutService) RejectCommissionPayout(id uint, notes string) error {
	applied, err := s.commissionRepo.Reject(id, notes)
	if err != nil {
		return err
	}
	if !applied {
		return ErrNotApprovable
	}
	log.Printf("[payout] commission payout %d rejected", id)
	return nil
}

// ReconcileTransferEvent matches a transfer webhook back onto the payout row
// by our stored reference and applies the terminal transition. Guarded
// updates make replayed deliveries no-ops; an unknown reference is
// acknowledged and logged.
func (s *PayoutService) ReconcileTransferEvent(ev *payment.WebhookEvent) error {
	ref := ev.PayoutReference
	if ref == "" {
		log.Printf("[payout] transfer event %s without reference, acknowledging", ev.Type)
		return nil
	}
	now := time.Now()

	if p, err := s.campaignPayoutRepo.GetByReference(ref); err == nil {
		return s.reconcileCampaignPayout(p, ev, now)
	} else if !errors.Is(err, repository.ErrCampaignPayoutNotFound) {
		return err
	}

	if p, err := s.commissionRepo.GetByReference(ref); err == nil {
		return s.reconcileCommissionPayout(p, ev, now)
	} else if !errors.Is(err, repository.ErrCommissionPayoutNotFound) {
		return err
	}

	log.Printf("[payout] no payout for reference=%s, acknowledging", ref)
	return nil
}

func (s *PayoutService) reconcileCampaignPayout(p *models.CampaignPayout, ev *payment.WebhookEvent, now time.Time) error {
	switch ev.Category {
	case payment.EventTransferSucceeded:
		applied, err := s.campaignPayoutRepo.MarkCompleted(p.ID, ev.TransferID, now)
		if err != nil {
			return fmt.Errorf("complete payout %s: %w", p.Reference, err)
		}
		if !applied {
			log.Printf("[payout] payout %s already terminal, replay no-op", p.Reference)
			return nil
		}
		log.Printf("[payout] payout %s COMPLETED transfer=%s", p.Reference, ev.TransferID)
		s.notifSvc.NotifyPayoutCompleted(p.UserID, p.Reference, p.NetCents, p.Currency)
		s.auditPayout("campaign_payout_completed", p.UserID, p.Reference, "")
	case payment.EventTransferFailed, payment.EventTransferReversed:
		reason := domain.MapProviderFailure(ev.FailureCode)
		applied, err := s.campaignPayoutRepo.MarkFailed(p.ID, reason)
		if err != nil {
			return fmt.Errorf("fail payout %s: %w", p.Reference, err)
		}
		if !applied {
			return nil
		}
		log.Printf("[payout] payout %s FAILED reason=%s", p.Reference, reason)
		s.notifSvc.NotifyPayoutFailed(p.UserID, p.Reference, domain.FailureMessage(reason))
		s.auditPayout("campaign_payout_failed", p.UserID, p.Reference, reason)
	}
	return nil
}

func (s *PayoutService) reconcileCommissionPayout(p *models.CommissionPayout, ev *payment.WebhookEvent, now time.Time) error {
	switch ev.Category {
	case payment.EventTransferSucceeded:
		applied, err := s.commissionRepo.MarkPaid(p.ID, now)
		if err != nil {
			return fmt.Errorf("pay commission %s: %w", p.Reference, err)
		}
		if !applied {
			log.Printf("[payout] commission %s already terminal, replay no-op", p.Reference)
			return nil
		}
		if err := s.chainerRepo.MarkCommissionPaid(p.ChainerID); err != nil {
			log.Printf("[payout] flagging chainer %d commission_paid failed: %v", p.ChainerID, err)
		}
		log.Printf("[payout] commission %s PAID transfer=%s", p.Reference, ev.TransferID)
		s.auditPayout("commission_payout_paid", 0, p.Reference, "")
	case payment.EventTransferFailed, payment.EventTransferReversed:
		reason := domain.MapProviderFailure(ev.FailureCode)
		applied, err := s.commissionRepo.MarkFailed(p.ID, reason)
		if err != nil {
			return fmt.Errorf("fail commission %s: %w", p.Reference, err)
		}
		if applied {
			log.Printf("[payout] commission %s FAILED reason=%s", p.Reference, reason)
			s.auditPayout("commission_payout_failed", 0, p.Reference, reason)
		}
	}
	return nil
}

func (s *PayoutService) auditPayout(action string, userID uint, reference, detail string) {
	if s.auditRepo == nil {
		return
	}
	var uid *uint
	if userID != 0 {
		uid = &userID
	}
	if err := s.auditRepo.Create(&models.AuditLog{
		UserID:     uid,
		Action:     action,
		Resource:   "payout",
		ResourceID: reference,
		Detail:     detail,
	}); err != nil {
		log.Printf("[audit] %s for payout %s failed: %v", action, reference, err)
	}
}
