package repository

import (
	"context"
	"strings"
	"time"

	"github.com/ManuelReschke/BizDesk/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("last_login_at", time.Now()).Error
}

// SearchByEmail returns users whose email contains query, newest first
func (r *userRepository) SearchByEmail(ctx context.Context, query string, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 50
	}
	var users []models.User
	searchPattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := r.db.WithContext(ctx).Where("email LIKE ?", searchPattern).
		Order("created_at DESC").Limit(limit).Find(&users).Error
	return users, err
}

// SearchWithEntitlements searches users and attaches their entitlement records
func (r *userRepository) SearchWithEntitlements(ctx context.Context, query string, limit int) ([]UserWithEntitlement, error) {
	users, err := r.SearchByEmail(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return []UserWithEntitlement{}, nil
	}

	emails := make([]string, 0, len(users))
	for _, u := range users {
		emails = append(emails, u.Email)
	}
	var records []models.EntitlementRecord
	if err := r.db.WithContext(ctx).Where("email IN ?", emails).Find(&records).Error; err != nil {
		return nil, err
	}
	byEmail := make(map[string]*models.EntitlementRecord, len(records))
	for i := range records {
		byEmail[records[i].Email] = &records[i]
	}

	out := make([]UserWithEntitlement, 0, len(users))
	for _, u := range users {
		out = append(out, UserWithEntitlement{User: u, Entitlement: byEmail[u.Email]})
	}
	return out, nil
}
