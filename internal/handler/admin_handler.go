package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"chainfund/internal/domain"
	"chainfund/internal/repository"
	"chainfund/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler groups the moderation surface: campaign close/pause,
// commission payout approval and the unredacted donation view.
type AdminHandler struct {
	lifecycle    *service.LifecycleService
	payoutSvc    *service.PayoutService
	donationRepo *repository.DonationRepository
	chainerRepo  *repository.ChainerRepository
}

func NewAdminHandler(lifecycle *service.LifecycleService, payoutSvc *service.PayoutService, donationRepo *repository.DonationRepository, chainerRepo *repository.ChainerRepository) *AdminHandler {
	return &AdminHandler{
		lifecycle:    lifecycle,
		payoutSvc:    payoutSvc,
		donationRepo: donationRepo,
		chainerRepo:  chainerRepo,
	}
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// CloseCampaign handles POST /admin/campaigns/:id/close. Closing is
// idempotent; closing an already closed campaign reports applied=false.
func (h *AdminHandler) CloseCampaign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	applied, err := h.lifecycle.Close(id, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close campaign"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied, "status": domain.CampaignClosed})
}

// PauseCampaign handles POST /admin/campaigns/:id/pause. Only ACTIVE
// campaigns can be paused.
func (h *AdminHandler) PauseCampaign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	applied, err := h.lifecycle.Pause(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to pause campaign"})
		return
	}
	if !applied {
		c.JSON(http.StatusConflict, gin.H{"error": "campaign is not active"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": true, "status": domain.CampaignPaused})
}

type approvePayoutRequest struct {
	Provider string              `json:"provider" binding:"required"`
	Bank     service.BankDetails `json:"bank" binding:"required"`
}

// ApproveCommissionPayout handles POST /admin/commission-payouts/:id/approve.
func (h *AdminHandler) ApproveCommissionPayout(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req approvePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.payoutSvc.ApproveCommissionPayout(c.Request.Context(), id, req.Provider, req.Bank)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotApprovable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUnsupportedProvider):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve payout"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           p.ID,
		"reference":    p.Reference,
		"status":       p.Status,
		"amount_cents": p.AmountCents,
	})
}

type rejectPayoutRequest struct {
	Notes string `json:"notes"`
}

// RejectCommissionPayout handles POST /admin/commission-payouts/:id/reject.
func (h *AdminHandler) RejectCommissionPayout(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req rejectPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.payoutSvc.RejectCommissionPayout(id, req.Notes); err != nil {
		if errors.Is(err, service.ErrNotApprovable) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reject payout"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": true})
}

// GetDonation handles GET /admin/donations/:id. Unlike the donor view, this
// exposes the raw failure reason and retry counters.
func (h *AdminHandler) GetDonation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	d, err := h.donationRepo.GetByID(id)
	if errors.Is(err, repository.ErrDonationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "donation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load donation"})
		return
	}
	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"id":                 d.ID,
		"campaign_id":        d.CampaignID,
		"donor_id":           d.DonorID,
		"chainer_id":         d.ChainerID,
		"reference":          d.ProviderRef,
		"provider":           d.Provider,
		"status":             d.PaymentStatus,
		"state":              service.Classify(d, now),
		"failure_reason":     d.FailureReason,
		"retry_attempts":     d.RetryAttempts,
		"last_status_update": d.LastStatusUpdate,
		"amount_cents":       d.AmountCents,
		"currency":           d.Currency,
		"created_at":         d.CreatedAt,
	})
}

type chainerStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetChainerStatus handles POST /admin/chainers/:id/status.
func (h *AdminHandler) SetChainerStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req chainerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch req.Status {
	case domain.ChainerActive, domain.ChainerSuspended, domain.ChainerBanned:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chainer status"})
		return
	}
	if err := h.chainerRepo.SetStatus(id, req.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update chainer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": true, "status": req.Status})
}
