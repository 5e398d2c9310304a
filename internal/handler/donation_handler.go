package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"chainfund/internal/middleware"
	"chainfund/internal/repository"
	"chainfund/internal/service"

	"github.com/gin-gonic/gin"
)

type DonationHandler struct {
	donationSvc *service.DonationService
}

func NewDonationHandler(donationSvc *service.DonationService) *DonationHandler {
	return &DonationHandler{donationSvc: donationSvc}
}

// Create handles POST /donations.
func (h *DonationHandler) Create(c *gin.Context) {
	var in service.CreateDonationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	donorID := middleware.GetUserID(c)
	d, err := h.donationSvc.Create(donorID, &in, time.Now())
	if err != nil {
		var accErr *service.AcceptanceError
		switch {
		case errors.As(err, &accErr):
			c.JSON(http.StatusConflict, gin.H{"error": accErr.Error(), "reason": accErr.Reason})
		case errors.Is(err, service.ErrCampaignNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrUnsupportedCurrency),
			errors.Is(err, service.ErrUnsupportedProvider),
			errors.Is(err, service.ErrCurrencyMismatch),
			errors.Is(err, service.ErrUnknownReferralCode),
			errors.Is(err, service.ErrReferralMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create donation"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":           d.ID,
		"reference":    d.ProviderRef,
		"status":       d.PaymentStatus,
		"amount_cents": d.AmountCents,
		"currency":     d.Currency,
	})
}

// Get handles GET /donations/:id. Donors see their own donation with a
// friendly status message; the raw failure reason stays admin-only.
func (h *DonationHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid donation id"})
		return
	}
	d, err := h.donationSvc.Get(uint(id))
	if errors.Is(err, repository.ErrDonationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "donation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load donation"})
		return
	}
	if d.DonorID != middleware.GetUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "donation not found"})
		return
	}
	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"id":           d.ID,
		"campaign_id":  d.CampaignID,
		"reference":    d.ProviderRef,
		"status":       d.PaymentStatus,
		"state":        service.Classify(d, now),
		"message":      service.StatusMessage(d, now),
		"amount_cents": d.AmountCents,
		"currency":     d.Currency,
		"created_at":   d.CreatedAt,
	})
}
