package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripelib "github.com/stripe/stripe-go/v82"
)

func TestFromStripeSubscription_UsesFirstItemPeriod(t *testing.T) {
	sub := &stripelib.Subscription{
		ID:       "sub_1",
		Status:   stripelib.SubscriptionStatusActive,
		Customer: &stripelib.Customer{ID: "cus_1"},
		Items: &stripelib.SubscriptionItemList{Data: []*stripelib.SubscriptionItem{
			{CurrentPeriodStart: 1767225600, CurrentPeriodEnd: 1769904000},
		}},
	}

	got := fromStripeSubscription(sub)
	require.NotNil(t, got)
	assert.Equal(t, "sub_1", got.ID)
	assert.Equal(t, "cus_1", got.CustomerID)
	assert.Equal(t, "active", got.Status)
	require.NotNil(t, got.PeriodEnd)
	assert.Equal(t, int64(1769904000), got.PeriodEnd.Unix())
}

func TestFromStripeSubscription_NoItems(t *testing.T) {
	got := fromStripeSubscription(&stripelib.Subscription{ID: "sub_2", Status: "canceled"})
	require.NotNil(t, got)
	assert.Nil(t, got.PeriodStart)
	assert.Nil(t, got.PeriodEnd)
	assert.Nil(t, fromStripeSubscription(nil))
}

func TestStripeProvider_CustomerEmail(t *testing.T) {
	p := &StripeProvider{getCustomer: func(id string, _ *stripelib.CustomerParams) (*stripelib.Customer, error) {
		switch id {
		case "cus_live":
			return &stripelib.Customer{ID: id, Email: " Paid@X.com"}, nil
		case "cus_deleted":
			return &stripelib.Customer{ID: id, Deleted: true, Email: "gone@x.com"}, nil
		default:
			return nil, errors.New("no such customer")
		}
	}}

	email, err := p.CustomerEmail(context.Background(), "cus_live")
	require.NoError(t, err)
	assert.Equal(t, "paid@x.com", email)

	email, err = p.CustomerEmail(context.Background(), "cus_deleted")
	require.NoError(t, err)
	assert.Empty(t, email)

	_, err = p.CustomerEmail(context.Background(), "cus_missing")
	assert.Error(t, err)
}
