package payment

import (
	"context"
	"fmt"
)

// StubTransferProvider is a no-op transfer provider for development and
// tests; transfers resolve only when a (simulated) webhook arrives.
type StubTransferProvider struct {
	Requests []TransferRequest
}

func (s *StubTransferProvider) CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	s.Requests = append(s.Requests, req)
	return &TransferResponse{
		TransferID: fmt.Sprintf("stub_tr_%s", req.Reference),
		Status:     "pending",
	}, nil
}
