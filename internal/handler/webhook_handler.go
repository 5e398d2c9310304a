package handler

import (
	"io"
	"log"
	"net/http"

	"chainfund/internal/service"
	"chainfund/pkg/payment"

	"github.com/gin-gonic/gin"
)

// WebhookHandler is the single entry point for provider webhooks. Signature
// verification happens against the raw body before the payload is
// interpreted; a bad signature is rejected without parsing. 200 means
// accepted or already processed, 401 means bad signature (no processing),
// 500 means the core financial transition could not be persisted and the
// provider must redeliver.
type WebhookHandler struct {
	reconciler *service.ReconcileService
	payoutSvc  *service.PayoutService
	verifiers  map[string]payment.WebhookVerifier
}

func NewWebhookHandler(reconciler *service.ReconcileService, payoutSvc *service.PayoutService, verifiers map[string]payment.WebhookVerifier) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, payoutSvc: payoutSvc, verifiers: verifiers}
}

// Handle processes POST /webhooks/:provider.
func (h *WebhookHandler) Handle(c *gin.Context) {
	providerKind := c.Param("provider")
	verifier, ok := h.verifiers[providerKind]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if !verifier.VerifySignature(body, c.GetHeader(verifier.SignatureHeader())) {
		log.Printf("[webhook] %s signature verification failed", providerKind)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}
	ev, err := verifier.ParseEvent(body)
	if err != nil {
		log.Printf("[webhook] %s parse error: %v", providerKind, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	log.Printf("[webhook] %s event type=%s category=%s reference=%s", providerKind, ev.Type, ev.Category, ev.Reference)

	switch ev.Category {
	case payment.EventPaymentSucceeded:
		err = h.reconciler.HandlePaymentSucceeded(ev)
	case payment.EventPaymentFailed:
		err = h.reconciler.HandlePaymentFailed(ev)
	case payment.EventPaymentCanceled:
		err = h.reconciler.HandlePaymentCanceled(ev)
	case payment.EventRefund:
		err = h.reconciler.HandleRefund(ev)
	case payment.EventTransferSucceeded, payment.EventTransferFailed, payment.EventTransferReversed:
		err = h.payoutSvc.ReconcileTransferEvent(ev)
	default:
		// Unrecognized event types fail closed: acknowledged and logged.
		log.Printf("[webhook] %s ignoring event type=%s", providerKind, ev.Type)
	}
	if err != nil {
		log.Printf("[webhook] %s processing failed for type=%s: %v", providerKind, ev.Type, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
