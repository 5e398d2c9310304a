package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"chainfund/internal/middleware"
	"chainfund/internal/service"

	"github.com/gin-gonic/gin"
)

type ChainerHandler struct {
	chainerSvc *service.ChainerService
}

func NewChainerHandler(chainerSvc *service.ChainerService) *ChainerHandler {
	return &ChainerHandler{chainerSvc: chainerSvc}
}

// Join handles POST /campaigns/:id/chain.
func (h *ChainerHandler) Join(c *gin.Context) {
	campaignID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
		return
	}
	ch, created, err := h.chainerSvc.Join(middleware.GetUserID(c), uint(campaignID), time.Now())
	if err != nil {
		var accErr *service.AcceptanceError
		switch {
		case errors.As(err, &accErr):
			c.JSON(http.StatusConflict, gin.H{"error": accErr.Error(), "reason": accErr.Reason})
		case errors.Is(err, service.ErrCampaignNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrCampaignNotChained):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join campaign"})
		}
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"id":            ch.ID,
		"campaign_id":   ch.CampaignID,
		"referral_code": ch.ReferralCode,
		"status":        ch.Status,
	})
}

// ListMine handles GET /me/chainers.
func (h *ChainerHandler) ListMine(c *gin.Context) {
	chainers, err := h.chainerSvc.ListForUser(middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chainers"})
		return
	}
	out := make([]gin.H, 0, len(chainers))
	for _, ch := range chainers {
		out = append(out, gin.H{
			"id":                      ch.ID,
			"campaign_id":             ch.CampaignID,
			"referral_code":           ch.ReferralCode,
			"status":                  ch.Status,
			"total_raised_cents":      ch.TotalRaisedCents,
			"total_referrals":         ch.TotalReferrals,
			"commission_earned_cents": ch.CommissionEarnedCents,
			"commission_paid":         ch.CommissionPaid,
		})
	}
	c.JSON(http.StatusOK, gin.H{"chainers": out})
}
