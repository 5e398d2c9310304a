package payment

import "context"

// EventCategory is the normalized category a provider event maps onto.
// Providers emit dozens of event types; the engine only reacts to these.
type EventCategory string

const (
	EventPaymentSucceeded  EventCategory = "payment_succeeded"
	EventPaymentFailed     EventCategory = "payment_failed"
	EventPaymentCanceled   EventCategory = "payment_canceled"
	EventRefund            EventCategory = "refund"
	EventTransferSucceeded EventCategory = "transfer_succeeded"
	EventTransferFailed    EventCategory = "transfer_failed"
	EventTransferReversed  EventCategory = "transfer_reversed"
	// EventIgnored means the type is not one we act on. It is acknowledged
	// and logged, never an error: unrecognized events fail closed.
	EventIgnored EventCategory = "ignored"
)

// WebhookEvent is the provider-neutral view of an inbound webhook, produced
// by a per-provider tagged-variant parser.
type WebhookEvent struct {
	Category        EventCategory
	Type            string // raw provider event type
	Reference       string // our donation reference (from provider metadata, falling back to the provider object id)
	PayoutReference string // our payout reference, for transfer events
	TransferID      string // provider-side transfer/payout id
	AmountCents     int64
	Currency        string
	FailureCode     string // raw provider decline/failure code
}

// WebhookVerifier verifies and parses one provider's webhook deliveries.
// VerifySignature must be called on the raw body before ParseEvent; a
// payload that fails verification is never interpreted.
type WebhookVerifier interface {
	SignatureHeader() string
	VerifySignature(body []byte, header string) bool
	ParseEvent(body []byte) (*WebhookEvent, error)
}

// TransferRequest asks a provider to move money to an external account.
// Reference is our payout reference; providers echo it back in transfer
// webhooks (directly or via metadata) so reconciliation can match the row.
type TransferRequest struct {
	AmountCents    int64
	Currency       string
	AccountNumber  string
	BankCode       string
	AccountName    string
	Reference      string
	IdempotencyKey string
	Reason         string
	Metadata       map[string]string
}

type TransferResponse struct {
	TransferID string
	Status     string
}

// TransferProvider dispatches outbound transfers. Calls may succeed, fail
// synchronously, or only resolve later via webhook.
type TransferProvider interface {
	CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResponse, error)
}
