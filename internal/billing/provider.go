package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ChargeRequest captures the data needed to create a charge with the payment
// provider. Settlement arrives asynchronously through the webhook.
type ChargeRequest struct {
	Amount           int64
	Currency         string
	CustomerRef      string
	PaymentMethodRef string
	Metadata         map[string]string
}

// Provider represents a connector to the external payment processor.
type Provider interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (string, error)
}

// StaticProvider simulates a successful provider integration. The synthetic
// payment id it returns is later echoed back through the settlement webhook.
type StaticProvider struct{}

// CreateCharge accepts the charge request with a synthetic payment reference.
func (StaticProvider) CreateCharge(_ context.Context, req ChargeRequest) (string, error) {
	if req.Amount <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}
	return "pi_" + uuid.NewString(), nil
}
