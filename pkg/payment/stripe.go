package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// StripeProvider talks to the Stripe API and verifies Stripe webhooks.
type StripeProvider struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	client        *http.Client
	// Tolerance bounds the age of a signed webhook timestamp.
	Tolerance time.Duration
}

func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	return &StripeProvider{
		SecretKey:     secretKey,
		WebhookSecret: webhookSecret,
		BaseURL:       "https://api.stripe.com",
		client:        &http.Client{Timeout: 15 * time.Second},
		Tolerance:     5 * time.Minute,
	}
}

func (p *StripeProvider) SignatureHeader() string {
	return "Stripe-Signature"
}

// VerifySignature checks the Stripe-Signature header: HMAC-SHA256 over
// "<t>.<body>" with the endpoint secret, plus a timestamp tolerance window.
func (p *StripeProvider) VerifySignature(body []byte, header string) bool {
	if header == "" {
		return false
	}
	var ts string
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts == "" || len(sigs) == 0 {
		return false
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	if p.Tolerance > 0 {
		age := time.Since(time.Unix(unix, 0))
		if age > p.Tolerance || age < -p.Tolerance {
			return false
		}
	}
	mac := hmac.New(sha256.New, []byte(p.WebhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	for _, s := range sigs {
		if hmac.Equal([]byte(s), []byte(expected)) {
			return true
		}
	}
	return false
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type stripePaymentIntent struct {
	ID               string            `json:"id"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *struct {
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
		Message     string `json:"message"`
	} `json:"last_payment_error"`
}

type stripeCharge struct {
	ID             string            `json:"id"`
	AmountRefunded int64             `json:"amount_refunded"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

type stripeTransfer struct {
	ID          string            `json:"id"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata"`
	FailureCode string            `json:"failure_code"`
}

// ParseEvent maps the Stripe event union onto a WebhookEvent. Types outside
// the union come back as EventIgnored.
func (p *StripeProvider) ParseEvent(body []byte) (*WebhookEvent, error) {
	var ev stripeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("stripe event: %w", err)
	}
	out := &WebhookEvent{Category: EventIgnored, Type: ev.Type}
	switch ev.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		var pi stripePaymentIntent
		if err := json.Unmarshal(ev.Data.Object, &pi); err != nil {
			return nil, fmt.Errorf("stripe payment_intent: %w", err)
		}
		out.Reference = pi.Metadata["reference"]
		if out.Reference == "" {
			out.Reference = pi.ID
		}
		out.AmountCents = pi.Amount
		out.Currency = strings.ToUpper(pi.Currency)
		switch ev.Type {
		case "payment_intent.succeeded":
			out.Category = EventPaymentSucceeded
		case "payment_intent.canceled":
			out.Category = EventPaymentCanceled
		default:
			out.Category = EventPaymentFailed
			if pi.LastPaymentError != nil {
				out.FailureCode = pi.LastPaymentError.DeclineCode
				if out.FailureCode == "" {
					out.FailureCode = pi.LastPaymentError.Code
				}
			}
		}
	case "charge.refunded":
		var ch stripeCharge
		if err := json.Unmarshal(ev.Data.Object, &ch); err != nil {
			return nil, fmt.Errorf("stripe charge: %w", err)
		}
		out.Category = EventRefund
		out.Reference = ch.Metadata["reference"]
		if out.Reference == "" {
			out.Reference = ch.ID
		}
		out.AmountCents = ch.AmountRefunded
		out.Currency = strings.ToUpper(ch.Currency)
	case "transfer.paid", "payout.paid", "transfer.failed", "payout.failed", "transfer.reversed":
		var tr stripeTransfer
		if err := json.Unmarshal(ev.Data.Object, &tr); err != nil {
			return nil, fmt.Errorf("stripe transfer: %w", err)
		}
		out.PayoutReference = tr.Metadata["reference"]
		out.TransferID = tr.ID
		out.AmountCents = tr.Amount
		out.Currency = strings.ToUpper(tr.Currency)
		out.FailureCode = tr.FailureCode
		switch ev.Type {
		case "transfer.paid", "payout.paid":
			out.Category = EventTransferSucceeded
		case "transfer.reversed":
			out.Category = EventTransferReversed
		default:
			out.Category = EventTransferFailed
		}
	}
	return out, nil
}

// CreateTransfer dispatches a transfer via POST /v1/transfers. The caller's
// idempotency key rides the Idempotency-Key header, so bounded retries on
// transient failure cannot double-send money.
func (p *StripeProvider) CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("destination", req.AccountNumber)
	form.Set("metadata[reference]", req.Reference)
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	if req.Reason != "" {
		form.Set("description", req.Reason)
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/transfers", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		apiReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		apiReq.Header.Set("Authorization", "Bearer "+p.SecretKey)
		apiReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
		log.Printf("[stripe] POST /v1/transfers reference=%s amount=%d attempt=%d", req.Reference, req.AmountCents, attempt)
		resp, err := p.client.Do(apiReq)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode < 500 {
				if resp.StatusCode != http.StatusOK {
					return nil, fmt.Errorf("stripe transfer: %d %s", resp.StatusCode, string(respBody))
				}
				var out struct {
					ID string `json:"id"`
				}
				if err := json.Unmarshal(respBody, &out); err != nil {
					return nil, fmt.Errorf("stripe transfer response: %w", err)
				}
				return &TransferResponse{TransferID: out.ID, Status: "pending"}, nil
			}
			lastErr = fmt.Errorf("stripe transfer: %d %s", resp.StatusCode, string(respBody))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return nil, lastErr
}
