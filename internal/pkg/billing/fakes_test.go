package billing

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/BizDesk/app/models"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]models.EntitlementRecord
	events  map[uint]*models.BillingWebhookEvent
	nextID  uint
	upserts int
	failErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records: map[string]models.EntitlementRecord{},
		events:  map[uint]*models.BillingWebhookEvent{},
	}
}

func (m *memoryStore) UpsertByEmail(_ context.Context, rec *models.EntitlementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.upserts++

	cur, ok := m.records[rec.Email]
	if !ok {
		m.nextID++
		cur = models.EntitlementRecord{ID: m.nextID, Email: rec.Email}
	}
	cur.Status = rec.Status
	if rec.ProviderCustomerID != "" {
		cur.ProviderCustomerID = rec.ProviderCustomerID
	}
	if rec.UserID != nil {
		cur.UserID = rec.UserID
	}
	if rec.ProviderSubscriptionID != nil {
		cur.ProviderSubscriptionID = rec.ProviderSubscriptionID
	}
	if rec.PeriodStart != nil {
		cur.PeriodStart = rec.PeriodStart
	}
	if rec.PeriodEnd != nil {
		cur.PeriodEnd = rec.PeriodEnd
	}
	m.records[rec.Email] = cur
	*rec = cur
	return nil
}

func (m *memoryStore) GetByEmail(_ context.Context, email string) (*models.EntitlementRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rec, nil
}

func (m *memoryStore) CreateWebhookEventIfNotExists(_ context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.Provider == event.Provider && e.ProviderEventID == event.ProviderEventID {
			return false, e, nil
		}
	}
	m.nextID++
	event.ID = m.nextID
	m.events[event.ID] = event
	return true, event, nil
}

func (m *memoryStore) MarkWebhookProcessed(_ context.Context, id uint, processingError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	e.ProcessedAt = &now
	e.ProcessingError = processingError
	e.Attempts++
	return nil
}

func (m *memoryStore) GetWebhookEvent(_ context.Context, id uint) (*models.BillingWebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

type fakeProvider struct {
	subs      map[string]*ProviderSubscription
	emails    map[string]string
	err       error
	subCalls  int
	mailCalls int
}

func (p *fakeProvider) ActiveSubscription(_ context.Context, customerID string) (*ProviderSubscription, error) {
	p.subCalls++
	if p.err != nil {
		return nil, p.err
	}
	return p.subs[customerID], nil
}

func (p *fakeProvider) CustomerEmail(_ context.Context, customerID string) (string, error) {
	p.mailCalls++
	if p.err != nil {
		return "", p.err
	}
	return p.emails[customerID], nil
}

type fakeAccounts struct {
	mu      sync.Mutex
	users   map[string]*models.User
	nextID  uint
	created int
	err     error
	// onEnsure runs at the start of EnsureUser.
	onEnsure func()
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{users: map[string]*models.User{}}
}

func (a *fakeAccounts) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.users[email], nil
}

func (a *fakeAccounts) EnsureUser(_ context.Context, email, customerID string) (*models.User, bool, error) {
	if a.onEnsure != nil {
		a.onEnsure()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, false, a.err
	}
	if u, ok := a.users[email]; ok {
		return u, false, nil
	}
	a.nextID++
	a.created++
	u := &models.User{ID: a.nextID, Email: email, Status: models.STATUS_ACTIVE, CreatedViaStripe: true, StripeCustomerID: customerID}
	a.users[email] = u
	return u, true, nil
}
