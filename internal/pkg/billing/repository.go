package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/BizDesk/app/models"
)

// Store is the durable entitlement record store plus the webhook event log.
type Store interface {
	// UpsertByEmail inserts or mutates the single record for rec.Email and
	// reloads the stored row into rec. Nullable columns are only overwritten
	// by non-null values.
	UpsertByEmail(ctx context.Context, rec *models.EntitlementRecord) error
	// GetByEmail returns gorm.ErrRecordNotFound when no record exists.
	GetByEmail(ctx context.Context, email string) (*models.EntitlementRecord, error)
	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
	GetWebhookEvent(ctx context.Context, id uint) (*models.BillingWebhookEvent, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing store backed by GORM.
func NewRepository(db *gorm.DB) Store {
	return &gormRepository{db: db}
}

func storeErr(err error) error {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func (r *gormRepository) UpsertByEmail(ctx context.Context, rec *models.EntitlementRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":                   gorm.Expr("VALUES(status)"),
			"provider_customer_id":     gorm.Expr("IF(VALUES(provider_customer_id) = '', provider_customer_id, VALUES(provider_customer_id))"),
			"user_id":                  gorm.Expr("COALESCE(VALUES(user_id), user_id)"),
			"provider_subscription_id": gorm.Expr("COALESCE(VALUES(provider_subscription_id), provider_subscription_id)"),
			"period_start":             gorm.Expr("COALESCE(VALUES(period_start), period_start)"),
			"period_end":               gorm.Expr("COALESCE(VALUES(period_end), period_end)"),
			"updated_at":               gorm.Expr("VALUES(updated_at)"),
		}),
	}).Create(rec).Error
	if err != nil {
		return storeErr(err)
	}

	var stored models.EntitlementRecord
	if err := r.db.WithContext(ctx).Where("email = ?", rec.Email).First(&stored).Error; err != nil {
		return storeErr(err)
	}
	*rec = stored
	return nil
}

func (r *gormRepository) GetByEmail(ctx context.Context, email string) (*models.EntitlementRecord, error) {
	var rec models.EntitlementRecord
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&rec).Error; err != nil {
		return nil, storeErr(err)
	}
	return &rec, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, storeErr(tx.Error)
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.WithContext(ctx).Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, storeErr(err)
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
		"attempts":         gorm.Expr("attempts + 1"),
	}
	return storeErr(r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error)
}

func (r *gormRepository) GetWebhookEvent(ctx context.Context, id uint) (*models.BillingWebhookEvent, error) {
	var event models.BillingWebhookEvent
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, storeErr(err)
	}
	return &event, nil
}
