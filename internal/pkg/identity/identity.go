// Package identity resolves and provisions user accounts by email.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizDesk/app/models"
	"github.com/ManuelReschke/BizDesk/app/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is not active")
	ErrEmailTaken         = errors.New("email already registered")
)

// Provisioner creates and authenticates users in the identity store.
type Provisioner struct {
	users        repository.UserRepository
	tempPassword func() string
}

func NewProvisioner(users repository.UserRepository) *Provisioner {
	return &Provisioner{
		users:        users,
		tempPassword: func() string { return uuid.NewString() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindUserByEmail returns nil, nil when no user exists.
func (p *Provisioner) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := p.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// EnsureUser returns the existing user for email or creates an active one
// with a random password. A concurrent create that loses the unique index
// race resolves to the winner's row.
func (p *Provisioner) EnsureUser(ctx context.Context, email, customerID string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	existing, err := p.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing.StripeCustomerID == "" && customerID != "" {
			existing.StripeCustomerID = customerID
			if err := p.users.Update(ctx, existing); err != nil {
				log.Warn().Err(err).Uint("user_id", existing.ID).Msg("[Identity] Failed to link Stripe customer")
			}
		}
		return existing, false, nil
	}

	name := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		name = email[:at]
	}
	u, err := models.CreateUser(name, email, p.tempPassword())
	if err != nil {
		return nil, false, fmt.Errorf("build user: %w", err)
	}
	u.CreatedViaStripe = true
	u.StripeCustomerID = customerID

	if err := p.users.Create(ctx, u); err != nil {
		winner, findErr := p.FindUserByEmail(ctx, email)
		if findErr == nil && winner != nil {
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	log.Info().Str("email", email).Uint("user_id", u.ID).Msg("[Identity] Created user for paid checkout")
	return u, true, nil
}

// Register creates a self-service account.
func (p *Provisioner) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	existing, err := p.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	if strings.TrimSpace(name) == "" {
		name = email
	}
	u, err := models.CreateUser(name, email, password)
	if err != nil {
		return nil, err
	}
	if err := p.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks email and password and records the login.
func (p *Provisioner) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := p.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive() {
		return nil, ErrUserInactive
	}
	if err := p.users.TouchLastLogin(ctx, u.ID); err != nil {
		log.Warn().Err(err).Uint("user_id", u.ID).Msg("[Identity] Failed to record login")
	}
	return u, nil
}

// SignInExternal resolves a user verified by an external provider, creating
// one when absent. The provider has already proven ownership of the email.
func (p *Provisioner) SignInExternal(ctx context.Context, name, email string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := p.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		if strings.TrimSpace(name) == "" {
			name = email
		}
		u, err = models.CreateUser(name, email, p.tempPassword())
		if err != nil {
			return nil, err
		}
		if err := p.users.Create(ctx, u); err != nil {
			return nil, err
		}
	}
	if !u.IsActive() {
		return nil, ErrUserInactive
	}
	if err := p.users.TouchLastLogin(ctx, u.ID); err != nil {
		log.Warn().Err(err).Uint("user_id", u.ID).Msg("[Identity] Failed to record login")
	}
	return u, nil
}

// ListUsersByEmail is the admin lookup of users and their entitlements.
func (p *Provisioner) ListUsersByEmail(ctx context.Context, query string) ([]repository.UserWithEntitlement, error) {
	return p.users.SearchWithEntitlements(ctx, query, 50)
}
