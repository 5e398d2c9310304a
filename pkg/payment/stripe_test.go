package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func stripeSign(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeVerifySignature(t *testing.T) {
	p := NewStripeProvider("sk_test", "whsec_test")
	body := []byte(`{"type":"payment_intent.succeeded"}`)
	now := time.Now().Unix()

	if !p.VerifySignature(body, stripeSign("whsec_test", now, body)) {
		t.Error("valid signature rejected")
	}
	if p.VerifySignature(body, stripeSign("whsec_wrong", now, body)) {
		t.Error("signature with wrong secret accepted")
	}
	if p.VerifySignature(body, "") {
		t.Error("empty header accepted")
	}
	if p.VerifySignature(body, "t=,v1=deadbeef") {
		t.Error("malformed header accepted")
	}
	stale := now - int64((10 * time.Minute).Seconds())
	if p.VerifySignature(body, stripeSign("whsec_test", stale, body)) {
		t.Error("stale timestamp accepted")
	}
	tampered := append([]byte(nil), body...)
	tampered[0] = '['
	if p.VerifySignature(tampered, stripeSign("whsec_test", now, body)) {
		t.Error("tampered body accepted")
	}
}

func TestStripeParseEvent(t *testing.T) {
	p := NewStripeProvider("sk_test", "whsec_test")

	cases := []struct {
		name     string
		body     string
		category EventCategory
		ref      string
		failure  string
	}{
		{
			"succeeded with metadata reference",
			`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":5000,"currency":"usd","metadata":{"reference":"don-abc"}}}}`,
			EventPaymentSucceeded, "don-abc", "",
		},
		{
			"succeeded falls back to intent id",
			`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_2","amount":5000,"currency":"usd"}}}`,
			EventPaymentSucceeded, "pi_2", "",
		},
		{
			"failed with decline code",
			`{"type":"payment_intent.payment_failed","data":{"object":{"id":"pi_3","metadata":{"reference":"don-def"},"last_payment_error":{"code":"card_declined","decline_code":"insufficient_funds"}}}}`,
			EventPaymentFailed, "don-def", "insufficient_funds",
		},
		{
			"canceled",
			`{"type":"payment_intent.canceled","data":{"object":{"id":"pi_4","metadata":{"reference":"don-ghi"}}}}`,
			EventPaymentCanceled, "don-ghi", "",
		},
		{
			"refund",
			`{"type":"charge.refunded","data":{"object":{"id":"ch_1","amount_refunded":5000,"currency":"usd","metadata":{"reference":"don-jkl"}}}}`,
			EventRefund, "don-jkl", "",
		},
		{
			"unknown type is ignored",
			`{"type":"customer.created","data":{"object":{}}}`,
			EventIgnored, "", "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := p.ParseEvent([]byte(tc.body))
			if err != nil {
				t.Fatal(err)
			}
			if ev.Category != tc.category || ev.Reference != tc.ref || ev.FailureCode != tc.failure {
				t.Errorf("event = %s/%q/%q, want %s/%q/%q", ev.Category, ev.Reference, ev.FailureCode, tc.category, tc.ref, tc.failure)
			}
		})
	}
}

func TestStripeParseTransferEvents(t *testing.T) {
	p := NewStripeProvider("sk_test", "whsec_test")

	body := `{"type":"transfer.paid","data":{"object":{"id":"tr_1","amount":97500,"currency":"ngn","metadata":{"reference":"po-xyz"}}}}`
	ev, err := p.ParseEvent([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Category != EventTransferSucceeded || ev.PayoutReference != "po-xyz" || ev.TransferID != "tr_1" {
		t.Errorf("event = %+v", ev)
	}

	body = `{"type":"transfer.failed","data":{"object":{"id":"tr_2","metadata":{"reference":"po-fail"},"failure_code":"account_closed"}}}`
	ev, err = p.ParseEvent([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Category != EventTransferFailed || ev.FailureCode != "account_closed" {
		t.Errorf("event = %+v", ev)
	}

	body = `{"type":"transfer.reversed","data":{"object":{"id":"tr_3","metadata":{"reference":"po-rev"}}}}`
	ev, _ = p.ParseEvent([]byte(body))
	if ev.Category != EventTransferReversed {
		t.Errorf("category = %s, want reversed", ev.Category)
	}
}

func TestStripeParseEventBadJSON(t *testing.T) {
	p := NewStripeProvider("sk_test", "whsec_test")
	if _, err := p.ParseEvent([]byte("{not json")); err == nil {
		t.Error("malformed body should error")
	}
}

func TestStripeCreateTransfer(t *testing.T) {
	var gotIdem, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdem = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("amount") != "97500" || r.Form.Get("metadata[reference]") != "po-1" {
			t.Errorf("form = %v", r.Form)
		}
		fmt.Fprint(w, `{"id":"tr_live_1"}`)
	}))
	defer srv.Close()

	p := NewStripeProvider("sk_test", "whsec_test")
	p.BaseURL = srv.URL

	resp, err := p.CreateTransfer(context.Background(), TransferRequest{
		AmountCents:    97500,
		Currency:       "NGN",
		AccountNumber:  "acct_1",
		Reference:      "po-1",
		IdempotencyKey: "po-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TransferID != "tr_live_1" {
		t.Errorf("transfer id = %s", resp.TransferID)
	}
	if gotIdem != "po-1" {
		t.Errorf("idempotency key = %q", gotIdem)
	}
	if gotAuth != "Bearer sk_test" {
		t.Errorf("authorization = %q", gotAuth)
	}
}

func TestStripeCreateTransferRetriesOn5xx(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"id":"tr_retry_1"}`)
	}))
	defer srv.Close()

	p := NewStripeProvider("sk_test", "whsec_test")
	p.BaseURL = srv.URL

	resp, err := p.CreateTransfer(context.Background(), TransferRequest{AmountCents: 100, Currency: "USD", Reference: "po-2", IdempotencyKey: "po-2"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TransferID != "tr_retry_1" || calls != 3 {
		t.Errorf("transfer = %s after %d calls", resp.TransferID, calls)
	}
}

func TestStripeCreateTransferNoRetryOn4xx(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"message":"insufficient balance"}}`)
	}))
	defer srv.Close()

	p := NewStripeProvider("sk_test", "whsec_test")
	p.BaseURL = srv.URL

	if _, err := p.CreateTransfer(context.Background(), TransferRequest{AmountCents: 100, Currency: "USD", Reference: "po-3"}); err == nil {
		t.Fatal("4xx should surface an error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on client error)", calls)
	}
}
