package billing

import (
	"context"
	"strings"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"
)

// PaymentProvider is the slice of the payment provider API reconciliation needs.
type PaymentProvider interface {
	// ActiveSubscription returns the customer's active subscription, or nil if there is none.
	ActiveSubscription(ctx context.Context, customerID string) (*ProviderSubscription, error)
	// CustomerEmail returns the email on file for the customer; empty when unknown or deleted.
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

// StripeProvider implements PaymentProvider against the Stripe API.
type StripeProvider struct {
	getCustomer       func(id string, params *stripelib.CustomerParams) (*stripelib.Customer, error)
	listSubscriptions func(params *stripelib.SubscriptionListParams) *subscription.Iter
}

// NewStripeProvider configures the Stripe SDK with the secret key.
func NewStripeProvider(secretKey string) *StripeProvider {
	stripelib.Key = strings.TrimSpace(secretKey)
	return &StripeProvider{
		getCustomer:       customer.Get,
		listSubscriptions: subscription.List,
	}
}

func (p *StripeProvider) ActiveSubscription(ctx context.Context, customerID string) (*ProviderSubscription, error) {
	params := &stripelib.SubscriptionListParams{
		Customer: stripelib.String(customerID),
		Status:   stripelib.String(string(stripelib.SubscriptionStatusActive)),
	}
	params.Limit = stripelib.Int64(1)
	params.Context = ctx

	iter := p.listSubscriptions(params)
	if iter.Next() {
		return fromStripeSubscription(iter.Subscription()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p *StripeProvider) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	params := &stripelib.CustomerParams{}
	params.Context = ctx

	c, err := p.getCustomer(customerID, params)
	if err != nil {
		return "", err
	}
	if c == nil || c.Deleted {
		return "", nil
	}
	return NormalizeEmail(c.Email), nil
}

func fromStripeSubscription(s *stripelib.Subscription) *ProviderSubscription {
	if s == nil {
		return nil
	}
	out := &ProviderSubscription{
		ID:     s.ID,
		Status: NormalizeStatus(string(s.Status)),
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil {
		for _, item := range s.Items.Data {
			if item == nil || (item.CurrentPeriodStart == 0 && item.CurrentPeriodEnd == 0) {
				continue
			}
			out.PeriodStart = UnixToTime(item.CurrentPeriodStart)
			out.PeriodEnd = UnixToTime(item.CurrentPeriodEnd)
			break
		}
	}
	return out
}
