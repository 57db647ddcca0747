package billing

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82/webhook"
)

// VerifyWebhookSignature checks the Stripe-Signature header against the raw
// request bytes. The payload must be exactly what arrived on the wire.
func VerifyWebhookSignature(payload []byte, signatureHeader, secret string) error {
	if strings.TrimSpace(signatureHeader) == "" {
		return ErrMissingSignature
	}
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}
	if err := webhook.ValidatePayload(payload, signatureHeader, secret); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return nil
}
