package router

import (
	"context"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/BizDesk/app/models"
	"github.com/ManuelReschke/BizDesk/app/repository"
	"github.com/ManuelReschke/BizDesk/internal/pkg/billing"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]models.EntitlementRecord
	events  map[uint]*models.BillingWebhookEvent
	nextID  uint
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
	subs   map[string]*billing.ProviderSubscription
	emails map[string]string
}

func (p *fakeProvider) ActiveSubscription(_ context.Context, customerID string) (*billing.ProviderSubscription, error) {
	return p.subs[customerID], nil
}

func (p *fakeProvider) CustomerEmail(_ context.Context, customerID string) (string, error) {
	return p.emails[customerID], nil
}

type memoryUsers struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	nextID  uint
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byEmail: map[string]*models.User{}}
}

func (m *memoryUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return gorm.ErrDuplicatedKey
	}
	m.nextID++
	u.ID = m.nextID
	m.byEmail[u.Email] = u
	return nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryUsers) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byEmail[u.Email] = u
	return nil
}

func (m *memoryUsers) TouchLastLogin(context.Context, uint) error { return nil }

func (m *memoryUsers) SearchByEmail(_ context.Context, query string, _ int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for email, u := range m.byEmail {
		if strings.Contains(email, query) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memoryUsers) SearchWithEntitlements(ctx context.Context, query string, limit int) ([]repository.UserWithEntitlement, error) {
	users, err := m.SearchByEmail(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]repository.UserWithEntitlement, 0, len(users))
	for _, u := range users {
		out = append(out, repository.UserWithEntitlement{User: u})
	}
	return out, nil
}
