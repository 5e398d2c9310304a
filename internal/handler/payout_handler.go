package handler

import (
	"errors"
	"net/http"

	"chainfund/internal/middleware"
	"chainfund/internal/service"

	"github.com/gin-gonic/gin"
)

type PayoutHandler struct {
	payoutSvc *service.PayoutService
}

func NewPayoutHandler(payoutSvc *service.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutSvc: payoutSvc}
}

type payoutRequest struct {
	CampaignID  uint                `json:"campaign_id" binding:"required"`
	AmountCents int64               `json:"amount_cents" binding:"required"`
	Currency    string              `json:"currency" binding:"required"`
	Provider    string              `json:"provider" binding:"required"`
	Bank        service.BankDetails `json:"bank" binding:"required"`
}

// Request handles POST /payouts.
func (h *PayoutHandler) Request(c *gin.Context) {
	var req payoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.payoutSvc.RequestCampaignPayout(c.Request.Context(), middleware.GetUserID(c), req.CampaignID, req.AmountCents, req.Currency, req.Provider, req.Bank)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotCampaignOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrPayoutConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInsufficientFunds),
			errors.Is(err, service.ErrUnsupportedProvider),
			errors.Is(err, service.ErrUnsupportedCurrency),
			errors.Is(err, service.ErrCurrencyMismatch),
			errors.Is(err, service.ErrAmountTooSmall):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to request payout"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":          p.ID,
		"reference":   p.Reference,
		"status":      p.Status,
		"gross_cents": p.GrossCents,
		"fee_cents":   p.FeeCents,
		"net_cents":   p.NetCents,
		"currency":    p.Currency,
	})
}
