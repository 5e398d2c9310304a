package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"chainfund/internal/domain"
	"chainfund/internal/repository"
	"chainfund/internal/service"
	"chainfund/internal/testutil"
	"chainfund/pkg/payment"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const testPaystackKey = "sk_test_webhook"

func newWebhookRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	campaignRepo := repository.NewCampaignRepository(db)
	reconciler := service.NewReconcileService(
		db,
		repository.NewDonationRepository(db),
		campaignRepo,
		repository.NewChainerRepository(db),
		repository.NewCommissionPayoutRepository(db),
		repository.NewAuditLogRepository(db),
		service.NewLifecycleService(campaignRepo, nil),
		nil,
	)
	payoutSvc := service.NewPayoutService(
		campaignRepo,
		repository.NewCampaignPayoutRepository(db),
		repository.NewCommissionPayoutRepository(db),
		repository.NewChainerRepository(db),
		repository.NewAuditLogRepository(db),
		nil,
		map[string]payment.TransferProvider{},
	)
	verifiers := map[string]payment.WebhookVerifier{
		"paystack": payment.NewPaystackProvider(testPaystackKey),
	}
	h := NewWebhookHandler(reconciler, payoutSvc, verifiers)

	r := gin.New()
	r.POST("/api/v1/webhooks/:provider", h.Handle)
	return r
}

func signedRequest(provider string, key string, body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/"+provider, bytes.NewReader(body))
	mac := hmac.New(sha512.New, []byte(key))
	mac.Write(body)
	req.Header.Set("x-paystack-signature", hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestWebhookUnknownProvider(t *testing.T) {
	db := testutil.NewDB(t)
	r := newWebhookRouter(db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/flutterwave", bytes.NewReader([]byte("{}"))))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestWebhookBadSignature(t *testing.T) {
	db := testutil.NewDB(t)
	r := newWebhookRouter(db)
	donationRepo := repository.NewDonationRepository(db)

	c := testutil.Campaign(t, db, 100000, 0)
	d := testutil.Donation(t, db, c.ID, 7, nil, 5000, "don-sig-1")

	body := []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":"%s","amount":5000,"currency":"NGN"}}`, d.ProviderRef))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest("paystack", "sk_wrong_key", body))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	got, _ := donationRepo.GetByID(d.ID)
	if got.PaymentStatus != domain.DonationPending {
		t.Errorf("donation touched on bad signature: %s", got.PaymentStatus)
	}
}

func TestWebhookChargeSuccess(t *testing.T) {
	db := testutil.NewDB(t)
	r := newWebhookRouter(db)
	donationRepo := repository.NewDonationRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)

	c := testutil.Campaign(t, db, 100000, 0)
	d := testutil.Donation(t, db, c.ID, 7, nil, 5000, "don-hook-1")

	body := []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":"%s","amount":5000,"currency":"NGN"}}`, d.ProviderRef))
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, signedRequest("paystack", testPaystackKey, body))
		if w.Code != http.StatusOK {
			t.Fatalf("delivery %d status = %d, want 200", i, w.Code)
		}
	}

	got, _ := donationRepo.GetByID(d.ID)
	if got.PaymentStatus != domain.DonationCompleted {
		t.Errorf("donation = %s, want COMPLETED", got.PaymentStatus)
	}
	gotC, _ := campaignRepo.GetByID(c.ID)
	if gotC.CurrentAmountCents != 5000 {
		t.Errorf("ledger = %d, want 5000 (credited once)", gotC.CurrentAmountCents)
	}
}

func TestWebhookIgnoredEventIsAcked(t *testing.T) {
	db := testutil.NewDB(t)
	r := newWebhookRouter(db)

	body := []byte(`{"event":"subscription.create","data":{}}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest("paystack", testPaystackKey, body))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for ignored event", w.Code)
	}
}

func TestWebhookMalformedPayload(t *testing.T) {
	db := testutil.NewDB(t)
	r := newWebhookRouter(db)

	body := []byte(`{not json`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest("paystack", testPaystackKey, body))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed payload", w.Code)
	}
}
