package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizDesk/app/models"
)

var (
	periodStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
)

func newTestService() (*Service, *memoryStore, *fakeProvider, *fakeAccounts) {
	store := newMemoryStore()
	provider := &fakeProvider{
		subs: map[string]*ProviderSubscription{
			"cus_1": {ID: "sub_1", CustomerID: "cus_1", Status: "active", PeriodStart: &periodStart, PeriodEnd: &periodEnd},
		},
		emails: map[string]string{"cus_1": "A@x.com"},
	}
	accounts := newFakeAccounts()
	return NewService(store, provider, accounts), store, provider, accounts
}

func paidCheckout() CheckoutSession {
	s := CheckoutSession{ID: "cs_1", PaymentStatus: "paid", Customer: "cus_1"}
	s.CustomerDetails.Email = "a@x.com"
	return s
}

func TestHandleCheckoutCompleted_ProvisionsAndActivates(t *testing.T) {
	svc, store, _, accounts := newTestService()

	require.NoError(t, svc.HandleCheckoutCompleted(context.Background(), paidCheckout()))

	rec, err := store.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.BillingStatusActive, rec.Status)
	assert.Equal(t, "cus_1", rec.ProviderCustomerID)
	require.NotNil(t, rec.ProviderSubscriptionID)
	assert.Equal(t, "sub_1", *rec.ProviderSubscriptionID)
	assert.Equal(t, periodEnd, *rec.PeriodEnd)
	require.NotNil(t, rec.UserID)
	assert.Equal(t, accounts.users["a@x.com"].ID, *rec.UserID)
	assert.True(t, accounts.users["a@x.com"].CreatedViaStripe)
}

func TestHandleCheckoutCompleted_DuplicateDeliveryIsIdempotent(t *testing.T) {
	svc, store, _, accounts := newTestService()

	require.NoError(t, svc.HandleCheckoutCompleted(context.Background(), paidCheckout()))
	first, _ := store.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, svc.HandleCheckoutCompleted(context.Background(), paidCheckout()))
	second, _ := store.GetByEmail(context.Background(), "a@x.com")

	assert.Len(t, store.records, 1)
	assert.Equal(t, 1, accounts.created)
	assert.Equal(t, first, second)
}

func TestHandleCheckoutCompleted_UnpaidIsNoop(t *testing.T) {
	svc, store, provider, accounts := newTestService()
	session := paidCheckout()
	session.PaymentStatus = "unpaid"

	require.NoError(t, svc.HandleCheckoutCompleted(context.Background(), session))
	assert.Empty(t, store.records)
	assert.Zero(t, accounts.created)
	assert.Zero(t, provider.subCalls)
}

func TestHandleCheckoutCompleted_MissingEmail(t *testing.T) {
	svc, store, _, _ := newTestService()
	session := paidCheckout()
	session.CustomerDetails.Email = ""

	err := svc.HandleCheckoutCompleted(context.Background(), session)
	assert.ErrorIs(t, err, ErrMissingEmail)
	assert.Equal(t, 400, HTTPStatus(err))
	assert.Empty(t, store.records)
}

func TestHandleCheckoutCompleted_FallsBackToCustomerEmail(t *testing.T) {
	svc, store, _, _ := newTestService()
	session := paidCheckout()
	session.CustomerDetails.Email = ""
	session.CustomerEmail = " B@X.com "

	require.NoError(t, svc.HandleCheckoutCompleted(context.Background(), session))
	_, err := store.GetByEmail(context.Background(), "b@x.com")
	assert.NoError(t, err)
}

func TestHandleCheckoutCompleted_NoSubscriptionLeavesPeriodsNull(t *testing.T) {
	svc, store, provider, _ := newTestService()
	provider.subs = nil

	require.NoError(t, svc.HandleCheckoutCompleted(context.Background(), paidCheckout()))
	rec, err := store.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.BillingStatusActive, rec.Status)
	assert.Nil(t, rec.PeriodStart)
	assert.Nil(t, rec.PeriodEnd)
	assert.Nil(t, rec.ProviderSubscriptionID)
}

func TestHandleCheckoutCompleted_ProvisioningFailureSkipsUpsert(t *testing.T) {
	svc, store, _, accounts := newTestService()
	accounts.err = errors.New("identity provider down")

	err := svc.HandleCheckoutCompleted(context.Background(), paidCheckout())
	assert.ErrorIs(t, err, ErrProvisioningFailed)
	assert.Equal(t, 500, HTTPStatus(err))
	assert.Zero(t, store.upserts)
}

func TestHandleCheckoutCompleted_ProviderFailureIsRetryable(t *testing.T) {
	svc, store, provider, _ := newTestService()
	provider.err = errors.New("stripe unavailable")

	err := svc.HandleCheckoutCompleted(context.Background(), paidCheckout())
	require.Error(t, err)
	assert.Equal(t, 500, HTTPStatus(err))
	assert.Zero(t, store.upserts)
}

func TestHandleSubscriptionChanged_DeletedBeforeCheckout(t *testing.T) {
	svc, store, _, accounts := newTestService()
	sub := Subscription{ID: "sub_1", Customer: "cus_1", Status: "canceled"}

	require.NoError(t, svc.HandleSubscriptionChanged(context.Background(), sub))

	rec, err := store.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.BillingStatusCanceled, rec.Status)
	assert.Nil(t, rec.UserID)
	assert.Zero(t, accounts.created)
}

func TestHandleSubscriptionChanged_KeepsUserAndUpdatesPeriod(t *testing.T) {
	svc, store, _, _ := newTestService()
	require.NoError(t, svc.HandleCheckoutCompleted(context.Background(), paidCheckout()))

	sub := Subscription{ID: "sub_1", Customer: "cus_1", Status: "past_due"}
	sub.Items.Data = append(sub.Items.Data, struct {
		CurrentPeriodStart int64 `json:"current_period_start"`
		CurrentPeriodEnd   int64 `json:"current_period_end"`
	}{CurrentPeriodStart: periodEnd.Unix(), CurrentPeriodEnd: periodEnd.AddDate(0, 1, 0).Unix()})

	require.NoError(t, svc.HandleSubscriptionChanged(context.Background(), sub))
	rec, err := store.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.BillingStatusPastDue, rec.Status)
	assert.NotNil(t, rec.UserID)
	assert.Equal(t, periodEnd.AddDate(0, 1, 0), *rec.PeriodEnd)
}

func TestHandleSubscriptionChanged_MetadataEmailSkipsLookup(t *testing.T) {
	svc, store, provider, _ := newTestService()
	sub := Subscription{ID: "sub_9", Customer: "cus_9", Status: "active", Metadata: map[string]string{"email": "Meta@X.com"}}

	require.NoError(t, svc.HandleSubscriptionChanged(context.Background(), sub))
	assert.Zero(t, provider.mailCalls)
	_, err := store.GetByEmail(context.Background(), "meta@x.com")
	assert.NoError(t, err)
}

func TestHandleSubscriptionChanged_UnresolvableEmail(t *testing.T) {
	svc, store, _, _ := newTestService()

	err := svc.HandleSubscriptionChanged(context.Background(), Subscription{ID: "sub_2", Customer: "cus_unknown", Status: "active"})
	assert.ErrorIs(t, err, ErrMissingEmail)
	assert.Empty(t, store.records)
}

func TestHandleEvent_UnknownTypeIgnored(t *testing.T) {
	svc, store, _, _ := newTestService()

	require.NoError(t, svc.HandleEvent(context.Background(), "invoice.paid", json.RawMessage(`{}`)))
	assert.Zero(t, store.upserts)
}

func TestHandleEvent_MalformedObject(t *testing.T) {
	svc, _, _, _ := newTestService()

	err := svc.HandleEvent(context.Background(), EventCheckoutCompleted, json.RawMessage(`"not an object"`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestHandleEvent_StoreFailureIsRetryable(t *testing.T) {
	svc, store, _, _ := newTestService()
	store.failErr = ErrStoreUnavailable

	err := svc.HandleEvent(context.Background(), EventSubscriptionUpdated,
		json.RawMessage(`{"id":"sub_1","customer":"cus_1","status":"active"}`))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 500, HTTPStatus(err))
}

type countingLocker struct {
	keys []string
}

func (l *countingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.keys = append(l.keys, key)
	return func() {}, nil
}

func TestService_LocksPerEmail(t *testing.T) {
	store := newMemoryStore()
	locker := &countingLocker{}
	provider := &fakeProvider{emails: map[string]string{"cus_1": "a@x.com"}}
	svc := NewService(store, provider, newFakeAccounts(), WithLocker(locker))

	require.NoError(t, svc.HandleCheckoutCompleted(context.Background(), paidCheckout()))
	assert.Equal(t, []string{"entitlement:a@x.com"}, locker.keys)
}

type heldLocker struct {
	held bool
	err  error
}

func (l *heldLocker) Lock(context.Context, string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.held = true
	return func() { l.held = false }, nil
}

func TestService_LockCoversProvisioning(t *testing.T) {
	locker := &heldLocker{}
	accounts := newFakeAccounts()
	var heldDuringEnsure bool
	accounts.onEnsure = func() { heldDuringEnsure = locker.held }
	provider := &fakeProvider{emails: map[string]string{"cus_1": "a@x.com"}}
	svc := NewService(newMemoryStore(), provider, accounts, WithLocker(locker))

	require.NoError(t, svc.HandleCheckoutCompleted(context.Background(), paidCheckout()))
	assert.True(t, heldDuringEnsure)
	assert.False(t, locker.held)
}

func TestService_LockOutageFallsBackToAtomicUpsert(t *testing.T) {
	store := newMemoryStore()
	locker := &heldLocker{err: errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")}
	provider := &fakeProvider{emails: map[string]string{"cus_1": "a@x.com"}}
	svc := NewService(store, provider, newFakeAccounts(), WithLocker(locker))

	require.NoError(t, svc.HandleCheckoutCompleted(context.Background(), paidCheckout()))
	rec, err := store.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.BillingStatusActive, rec.Status)
}

func TestRecordWebhookEvent_DeduplicatesByEventID(t *testing.T) {
	svc, _, _, _ := newTestService()
	in := WebhookEventInput{Provider: "Stripe", ProviderEventID: "evt_1", EventType: EventCheckoutCompleted, PayloadJSON: "{}", SignatureValid: true}

	created, first, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.BillingProviderStripe, first.Provider)

	created, second, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestRecordWebhookEvent_HashesMissingEventID(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, ev, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{Provider: "stripe", PayloadJSON: `{"a":1}`})
	require.NoError(t, err)
	assert.Contains(t, ev.ProviderEventID, "hash:")
}

func TestReplayWebhookEvent(t *testing.T) {
	svc, store, _, _ := newTestService()
	payload := `{"id":"evt_1","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","customer":"cus_1","status":"canceled"}}}`
	_, ev, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider: "stripe", ProviderEventID: "evt_1", EventType: EventSubscriptionDeleted, PayloadJSON: payload, SignatureValid: true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.ReplayWebhookEvent(context.Background(), ev.ID))
	rec, err := store.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.BillingStatusCanceled, rec.Status)
	assert.Equal(t, 1, store.events[ev.ID].Attempts)
}

func TestReplayWebhookEvent_RejectsUnverifiedPayload(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, ev, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{Provider: "stripe", ProviderEventID: "evt_x", PayloadJSON: "{}"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ReplayWebhookEvent(context.Background(), ev.ID), ErrInvalidSignature)
}

func TestReplayWebhookEvent_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService()
	assert.ErrorIs(t, svc.ReplayWebhookEvent(context.Background(), 42), gorm.ErrRecordNotFound)
}
