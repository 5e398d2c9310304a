package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func paystackSign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaystackVerifySignature(t *testing.T) {
	p := NewPaystackProvider("sk_test")
	body := []byte(`{"event":"charge.success"}`)

	if !p.VerifySignature(body, paystackSign("sk_test", body)) {
		t.Error("valid signature rejected")
	}
	if p.VerifySignature(body, paystackSign("sk_wrong", body)) {
		t.Error("signature with wrong key accepted")
	}
	if p.VerifySignature(body, "") {
		t.Error("empty header accepted")
	}
	if p.VerifySignature([]byte(`{"event":"charge.failed"}`), paystackSign("sk_test", body)) {
		t.Error("tampered body accepted")
	}
}

func TestPaystackParseEvent(t *testing.T) {
	p := NewPaystackProvider("sk_test")

	cases := []struct {
		name     string
		body     string
		category EventCategory
		ref      string
		failure  string
	}{
		{
			"charge success with metadata reference",
			`{"event":"charge.success","data":{"reference":"psk_1","amount":100000,"currency":"NGN","metadata":{"reference":"don-abc"}}}`,
			EventPaymentSucceeded, "don-abc", "",
		},
		{
			"charge success falls back to provider reference",
			`{"event":"charge.success","data":{"reference":"psk_2","amount":100000,"currency":"NGN"}}`,
			EventPaymentSucceeded, "psk_2", "",
		},
		{
			"charge success with empty-string metadata",
			`{"event":"charge.success","data":{"reference":"psk_3","amount":100000,"currency":"NGN","metadata":""}}`,
			EventPaymentSucceeded, "psk_3", "",
		},
		{
			"charge failed carries gateway response",
			`{"event":"charge.failed","data":{"reference":"psk_4","metadata":{"reference":"don-def"},"gateway_response":"Insufficient Funds"}}`,
			EventPaymentFailed, "don-def", "Insufficient Funds",
		},
		{
			"refund processed",
			`{"event":"refund.processed","data":{"transaction_reference":"don-ghi","amount":100000,"currency":"NGN"}}`,
			EventRefund, "don-ghi", "",
		},
		{
			"unknown event is ignored",
			`{"event":"subscription.create","data":{}}`,
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

func TestPaystackParseTransferEvents(t *testing.T) {
	p := NewPaystackProvider("sk_test")

	body := `{"event":"transfer.success","data":{"reference":"po-xyz","transfer_code":"TRF_1","amount":97500,"currency":"NGN"}}`
	ev, err := p.ParseEvent([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Category != EventTransferSucceeded || ev.PayoutReference != "po-xyz" || ev.TransferID != "TRF_1" {
		t.Errorf("event = %+v", ev)
	}

	body = `{"event":"transfer.failed","data":{"reference":"po-fail","transfer_code":"TRF_2","reason":"insufficient balance"}}`
	ev, _ = p.ParseEvent([]byte(body))
	if ev.Category != EventTransferFailed || ev.FailureCode != "insufficient balance" {
		t.Errorf("event = %+v", ev)
	}

	body = `{"event":"transfer.reversed","data":{"reference":"po-rev","transfer_code":"TRF_3"}}`
	ev, _ = p.ParseEvent([]byte(body))
	if ev.Category != EventTransferReversed {
		t.Errorf("category = %s, want reversed", ev.Category)
	}
}

func TestPaystackCreateTransfer(t *testing.T) {
	var paths []string
	var transferBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/transferrecipient":
			fmt.Fprint(w, `{"data":{"recipient_code":"RCP_1"}}`)
		case "/transfer":
			if err := json.NewDecoder(r.Body).Decode(&transferBody); err != nil {
				t.Errorf("decode: %v", err)
			}
			if r.Header.Get("Idempotency-Key") != "po-1" {
				t.Errorf("idempotency key = %q", r.Header.Get("Idempotency-Key"))
			}
			fmt.Fprint(w, `{"data":{"transfer_code":"TRF_live","status":"pending"}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	p := NewPaystackProvider("sk_test")
	p.BaseURL = srv.URL

	resp, err := p.CreateTransfer(context.Background(), TransferRequest{
		AmountCents:    97500,
		Currency:       "NGN",
		AccountNumber:  "0123456789",
		BankCode:       "058",
		AccountName:    "Jane Doe",
		Reference:      "po-1",
		IdempotencyKey: "po-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TransferID != "TRF_live" {
		t.Errorf("transfer id = %s", resp.TransferID)
	}
	if len(paths) != 2 || paths[0] != "/transferrecipient" || paths[1] != "/transfer" {
		t.Errorf("paths = %v", paths)
	}
	if transferBody["reference"] != "po-1" || transferBody["recipient"] != "RCP_1" {
		t.Errorf("transfer body = %v", transferBody)
	}
}
