package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ManuelReschke/BizDesk/app/models"
)

// Accounts resolves and provisions identity-provider users by email.
type Accounts interface {
	// FindUserByEmail returns nil, nil when no user exists.
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// EnsureUser looks the email up first and only creates the user when absent.
	EnsureUser(ctx context.Context, email, customerID string) (*models.User, bool, error)
}

// Locker serializes writes for one key across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

// Service reconciles verified provider events into entitlement records.
type Service struct {
	store    Store
	provider PaymentProvider
	accounts Accounts
	locker   Locker
}

type Option func(*Service)

// WithLocker serializes provisioning and the upsert per email. Without it
// the store's atomic upsert is the only guard.
func WithLocker(l Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

func NewService(store Store, provider PaymentProvider, accounts Accounts, opts ...Option) *Service {
	s := &Service{
		store:    store,
		provider: provider,
		accounts: accounts,
		locker:   noopLocker{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleEvent dispatches a verified event object by type. Unrecognized types are a no-op.
func (s *Service) HandleEvent(ctx context.Context, eventType string, raw json.RawMessage) error {
	switch eventType {
	case EventCheckoutCompleted:
		var session CheckoutSession
		if err := json.Unmarshal(raw, &session); err != nil {
			return fmt.Errorf("%w: checkout session: %w", ErrMalformedPayload, err)
		}
		return s.HandleCheckoutCompleted(ctx, session)
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return fmt.Errorf("%w: subscription: %w", ErrMalformedPayload, err)
		}
		return s.HandleSubscriptionChanged(ctx, sub)
	default:
		return nil
	}
}

// HandleCheckoutCompleted provisions the account for a paid checkout and
// marks its entitlement active.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, session CheckoutSession) error {
	if !session.Paid() {
		log.Info().Str("session", session.ID).Str("payment_status", session.PaymentStatus).
			Msg("[Billing] Checkout completed without payment, skipping")
		return nil
	}

	email := session.Email()
	if email == "" {
		return fmt.Errorf("%w: checkout session %s", ErrMissingEmail, session.ID)
	}

	var sub *ProviderSubscription
	customerID := strings.TrimSpace(session.Customer)
	if customerID != "" {
		var err error
		sub, err = s.provider.ActiveSubscription(ctx, customerID)
		if err != nil {
			return fmt.Errorf("resolve active subscription for %s: %w", customerID, err)
		}
	}

	defer s.lockEmail(ctx, email)()

	user, created, err := s.accounts.EnsureUser(ctx, email, customerID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProvisioningFailed, err)
	}
	if created {
		log.Info().Str("email", email).Uint("user_id", user.ID).Msg("[Billing] Provisioned account for checkout")
	}

	rec := &models.EntitlementRecord{
		Email:              email,
		UserID:             &user.ID,
		ProviderCustomerID: customerID,
		Status:             models.BillingStatusActive,
	}
	if sub != nil {
		if sub.ID != "" {
			rec.ProviderSubscriptionID = &sub.ID
		}
		rec.PeriodStart = sub.PeriodStart
		rec.PeriodEnd = sub.PeriodEnd
	}

	if err := s.store.UpsertByEmail(ctx, rec); err != nil {
		return err
	}
	log.Info().Str("email", email).Str("status", rec.Status).Msg("[Billing] Checkout reconciled")
	return nil
}

// HandleSubscriptionChanged mirrors the subscription's current status and
// period onto the record for its email. It never creates accounts.
func (s *Service) HandleSubscriptionChanged(ctx context.Context, sub Subscription) error {
	status := NormalizeStatus(sub.Status)
	if status == "" {
		return fmt.Errorf("%w: subscription %s has no status", ErrMalformedPayload, sub.ID)
	}

	email, err := s.subscriptionEmail(ctx, sub)
	if err != nil {
		return err
	}
	if email == "" {
		return fmt.Errorf("%w: subscription %s", ErrMissingEmail, sub.ID)
	}

	rec := &models.EntitlementRecord{
		Email:              email,
		ProviderCustomerID: strings.TrimSpace(sub.Customer),
		Status:             status,
	}
	if id := strings.TrimSpace(sub.ID); id != "" {
		rec.ProviderSubscriptionID = &id
	}
	rec.PeriodStart, rec.PeriodEnd = sub.Period()

	defer s.lockEmail(ctx, email)()

	user, err := s.accounts.FindUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if user != nil {
		rec.UserID = &user.ID
	}

	if err := s.store.UpsertByEmail(ctx, rec); err != nil {
		return err
	}
	log.Info().Str("email", email).Str("status", status).Msg("[Billing] Subscription reconciled")
	return nil
}

func (s *Service) subscriptionEmail(ctx context.Context, sub Subscription) (string, error) {
	if email := NormalizeEmail(sub.Metadata["email"]); email != "" {
		return email, nil
	}
	customerID := strings.TrimSpace(sub.Customer)
	if customerID == "" {
		return "", nil
	}
	email, err := s.provider.CustomerEmail(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("resolve customer email for %s: %w", customerID, err)
	}
	return NormalizeEmail(email), nil
}

// lockEmail holds the per-email lock for the rest of a reconciliation. When
// the lock backend is unreachable the work runs unlocked and the store's
// atomic upsert remains the guard.
func (s *Service) lockEmail(ctx context.Context, email string) func() {
	unlock, err := s.locker.Lock(ctx, "entitlement:"+email)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("[Billing] Entitlement lock unavailable, continuing unlocked")
		return func() {}
	}
	return unlock
}

// RecordWebhookEvent persists webhook payloads idempotently. Events without
// a provider id are keyed by the payload hash.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.store.CreateWebhookEventIfNotExists(ctx, event)
}

// MarkWebhookProcessed records the outcome of one processing attempt.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.store.MarkWebhookProcessed(ctx, webhookEventID, errMsg)
}

// ReplayWebhookEvent runs a stored, signature-verified event through
// reconciliation again and records the outcome.
func (s *Service) ReplayWebhookEvent(ctx context.Context, webhookEventID uint) error {
	stored, err := s.store.GetWebhookEvent(ctx, webhookEventID)
	if err != nil {
		return err
	}
	if !stored.SignatureValid {
		return fmt.Errorf("webhook event %d: %w", webhookEventID, ErrInvalidSignature)
	}

	ev, err := ParseEvent([]byte(stored.PayloadJSON))
	if err != nil {
		_ = s.MarkWebhookProcessed(ctx, stored.ID, err)
		return err
	}

	procErr := s.HandleEvent(ctx, ev.Type, ev.Data.Object)
	if err := s.MarkWebhookProcessed(ctx, stored.ID, procErr); err != nil {
		log.Warn().Err(err).Uint("event_id", stored.ID).Msg("[Billing] Failed to mark replayed event")
	}
	return procErr
}
