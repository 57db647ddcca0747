package billing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Provider event types this system reconciles. Everything else is acknowledged and ignored.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

const paymentStatusPaid = "paid"

// Event is the provider's webhook envelope.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a verified payload. It must only be called after the
// signature check on the same bytes succeeded.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(ev.Type) == "" {
		return nil, fmt.Errorf("%w: event type missing", ErrMalformedPayload)
	}
	return &ev, nil
}

// IsHandledEventType reports whether eventType drives reconciliation.
func IsHandledEventType(eventType string) bool {
	switch eventType {
	case EventCheckoutCompleted, EventSubscriptionUpdated, EventSubscriptionDeleted:
		return true
	default:
		return false
	}
}

// CheckoutSession is the subset of a checkout.session object used here.
type CheckoutSession struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	PaymentStatus   string `json:"payment_status"`
	Customer        string `json:"customer"`
	Subscription    string `json:"subscription"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

// Email prefers customer_details over the prefilled customer_email.
func (s CheckoutSession) Email() string {
	if email := NormalizeEmail(s.CustomerDetails.Email); email != "" {
		return email
	}
	return NormalizeEmail(s.CustomerEmail)
}

// Paid reports whether the session settled. Async payment methods complete unpaid.
func (s CheckoutSession) Paid() bool {
	return strings.EqualFold(strings.TrimSpace(s.PaymentStatus), paymentStatusPaid)
}

// Subscription is the subset of a subscription object used here. Newer API
// versions report billing periods per item instead of on the subscription.
type Subscription struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// Period returns the current billing period normalized to UTC times.
func (s Subscription) Period() (start, end *time.Time) {
	startSec, endSec := s.CurrentPeriodStart, s.CurrentPeriodEnd
	if startSec == 0 && endSec == 0 {
		for _, item := range s.Items.Data {
			if item.CurrentPeriodStart != 0 || item.CurrentPeriodEnd != 0 {
				startSec, endSec = item.CurrentPeriodStart, item.CurrentPeriodEnd
				break
			}
		}
	}
	return UnixToTime(startSec), UnixToTime(endSec)
}

// ProviderSubscription is a subscription resolved through the provider API.
type ProviderSubscription struct {
	ID          string
	CustomerID  string
	Status      string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// UnixToTime converts provider epoch seconds to a UTC timestamp. Zero means unset.
func UnixToTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// NormalizeEmail is the canonical form of the record key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeStatus lowercases provider statuses; empty stays empty.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
