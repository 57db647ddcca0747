package repository

import (
	"context"

	"github.com/ManuelReschke/BizDesk/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	TouchLastLogin(ctx context.Context, id uint) error
	SearchByEmail(ctx context.Context, query string, limit int) ([]models.User, error)
	SearchWithEntitlements(ctx context.Context, query string, limit int) ([]UserWithEntitlement, error)
}

// UserWithEntitlement represents a user with its entitlement record, if any
type UserWithEntitlement struct {
	User        models.User               `json:"user"`
	Entitlement *models.EntitlementRecord `json:"entitlement"`
}

// Repositories struct holds all repository instances
type Repositories struct {
	User UserRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User: NewUserRepository(db),
	}
}
