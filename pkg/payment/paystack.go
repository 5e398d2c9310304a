package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// PaystackProvider talks to the Paystack API and verifies Paystack webhooks.
type PaystackProvider struct {
	SecretKey string
	BaseURL   string
	client    *http.Client
}

func NewPaystackProvider(secretKey string) *PaystackProvider {
	return &PaystackProvider{
		SecretKey: secretKey,
		BaseURL:   "https://api.paystack.co",
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *PaystackProvider) SignatureHeader() string {
	return "x-paystack-signature"
}

// VerifySignature checks the x-paystack-signature header: HMAC-SHA512 of the
// raw body with the account secret key.
func (p *PaystackProvider) VerifySignature(body []byte, header string) bool {
	if header == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(p.SecretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(header), []byte(expected))
}

type paystackEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type paystackCharge struct {
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	GatewayResponse string          `json:"gateway_response"`
	Metadata        json.RawMessage `json:"metadata"` // free-form; may be "", an object, or absent
}

// metadataReference digs our reference out of a free-form metadata blob.
func metadataReference(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	if v, ok := m["reference"].(string); ok {
		return v
	}
	return ""
}

type paystackTransfer struct {
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Reason       string `json:"reason"`
}

type paystackRefund struct {
	TransactionReference string `json:"transaction_reference"`
	Amount               int64  `json:"amount"`
	Currency             string `json:"currency"`
}

// ParseEvent maps the Paystack event union onto a WebhookEvent. Types
// outside the union come back as EventIgnored.
func (p *PaystackProvider) ParseEvent(body []byte) (*WebhookEvent, error) {
	var ev paystackEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("paystack event: %w", err)
	}
	out := &WebhookEvent{Category: EventIgnored, Type: ev.Event}
	switch ev.Event {
	case "charge.success", "charge.failed":
		var ch paystackCharge
		if err := json.Unmarshal(ev.Data, &ch); err != nil {
			return nil, fmt.Errorf("paystack charge: %w", err)
		}
		out.Reference = metadataReference(ch.Metadata)
		if out.Reference == "" {
			out.Reference = ch.Reference
		}
		out.AmountCents = ch.Amount
		out.Currency = strings.ToUpper(ch.Currency)
		if ev.Event == "charge.success" {
			out.Category = EventPaymentSucceeded
		} else {
			out.Category = EventPaymentFailed
			out.FailureCode = ch.GatewayResponse
		}
	case "refund.processed":
		var rf paystackRefund
		if err := json.Unmarshal(ev.Data, &rf); err != nil {
			return nil, fmt.Errorf("paystack refund: %w", err)
		}
		out.Category = EventRefund
		out.Reference = rf.TransactionReference
		out.AmountCents = rf.Amount
		out.Currency = strings.ToUpper(rf.Currency)
	case "transfer.success", "transfer.failed", "transfer.reversed":
		var tr paystackTransfer
		if err := json.Unmarshal(ev.Data, &tr); err != nil {
			return nil, fmt.Errorf("paystack transfer: %w", err)
		}
		// We set the transfer reference ourselves at dispatch time, so the
		// webhook reference is our payout reference.
		out.PayoutReference = tr.Reference
		out.TransferID = tr.TransferCode
		out.AmountCents = tr.Amount
		out.Currency = strings.ToUpper(tr.Currency)
		switch ev.Event {
		case "transfer.success":
			out.Category = EventTransferSucceeded
		case "transfer.reversed":
			out.Category = EventTransferReversed
		default:
			out.Category = EventTransferFailed
			out.FailureCode = tr.Reason
		}
	}
	return out, nil
}

// CreateTransfer creates a transfer recipient for the bank details and then
// dispatches the transfer with our reference, which Paystack echoes back in
// transfer webhooks.
func (p *PaystackProvider) CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	recipient, err := p.createRecipient(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("paystack recipient: %w", err)
	}
	body := map[string]interface{}{
		"source":    "balance",
		"amount":    req.AmountCents,
		"currency":  req.Currency,
		"recipient": recipient,
		"reference": req.Reference,
		"reason":    req.Reason,
	}
	var out struct {
		Data struct {
			TransferCode string `json:"transfer_code"`
			Status       string `json:"status"`
		} `json:"data"`
	}
	if err := p.post(ctx, "/transfer", body, req.IdempotencyKey, &out); err != nil {
		return nil, fmt.Errorf("paystack transfer: %w", err)
	}
	return &TransferResponse{TransferID: out.Data.TransferCode, Status: out.Data.Status}, nil
}

func (p *PaystackProvider) createRecipient(ctx context.Context, req TransferRequest) (string, error) {
	body := map[string]interface{}{
		"type":           "nuban",
		"name":           req.AccountName,
		"account_number": req.AccountNumber,
		"bank_code":      req.BankCode,
		"currency":       req.Currency,
	}
	var out struct {
		Data struct {
			RecipientCode string `json:"recipient_code"`
		} `json:"data"`
	}
	if err := p.post(ctx, "/transferrecipient", body, "", &out); err != nil {
		return "", err
	}
	return out.Data.RecipientCode, nil
}

func (p *PaystackProvider) post(ctx context.Context, path string, body interface{}, idempotencyKey string, out interface{}) error {
	bodyBytes, _ := json.Marshal(body)
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, bytes.NewReader(bodyBytes))
		if err != nil {
			return err
		}
		apiReq.Header.Set("Content-Type", "application/json")
		apiReq.Header.Set("Authorization", "Bearer "+p.SecretKey)
		if idempotencyKey != "" {
			apiReq.Header.Set("Idempotency-Key", idempotencyKey)
		}
		log.Printf("[paystack] POST %s attempt=%d", path, attempt)
		resp, err := p.client.Do(apiReq)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode < 500 {
				if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
					return fmt.Errorf("%d %s", resp.StatusCode, string(respBody))
				}
				return json.Unmarshal(respBody, out)
			}
			lastErr = fmt.Errorf("%d %s", resp.StatusCode, string(respBody))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return lastErr
}
