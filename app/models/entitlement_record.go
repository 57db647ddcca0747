package models

import "time"

// EntitlementRecord is the durable subscription state for one paying email.
// Email is the natural key; every webhook for the same email mutates this row.
type EntitlementRecord struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	Email                  string     `gorm:"type:varchar(200);not null;uniqueIndex:ux_entitlement_records_email" json:"email"`
	UserID                 *uint      `gorm:"index" json:"user_id"`
	ProviderCustomerID     string     `gorm:"type:varchar(191);not null;default:'';index" json:"stripe_customer_id"`
	ProviderSubscriptionID *string    `gorm:"type:varchar(191);default:null" json:"stripe_subscription_id"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'inactive';index" json:"subscription_status"`
	PeriodStart            *time.Time `gorm:"type:datetime;default:null" json:"current_period_start"`
	PeriodEnd              *time.Time `gorm:"type:datetime;default:null" json:"current_period_end"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
