package entitlements

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/BizDesk/app/models"
)

// IsEntitled is the single access predicate: the record must be active and
// its period must not have ended. A missing period end never expires.
func IsEntitled(rec *models.EntitlementRecord, now time.Time) bool {
	if rec == nil || rec.Status != models.BillingStatusActive {
		return false
	}
	return rec.PeriodEnd == nil || rec.PeriodEnd.After(now)
}

// FormatStatus returns a display label for a stored subscription status.
// Unknown statuses are returned unchanged.
func FormatStatus(status string) string {
	switch status {
	case models.BillingStatusActive:
		return "Active"
	case models.BillingStatusInactive:
		return "Inactive"
	case models.BillingStatusCanceled:
		return "Canceled"
	case models.BillingStatusPastDue:
		return "Past due"
	case models.BillingStatusTrialing:
		return "Trial period"
	default:
		return status
	}
}

// Reader is the read side of the entitlement record store.
type Reader interface {
	GetByEmail(ctx context.Context, email string) (*models.EntitlementRecord, error)
}

// CheckResult is the wire shape of an entitlement query.
type CheckResult struct {
	Email                 string                    `json:"email"`
	HasActiveSubscription bool                      `json:"hasActiveSubscription"`
	Subscription          *models.EntitlementRecord `json:"subscription"`
}

// Checker answers entitlement queries against the record store.
type Checker struct {
	store Reader
	now   func() time.Time
}

func NewChecker(store Reader) *Checker {
	return &Checker{store: store, now: time.Now}
}

// WithClock replaces the time source used for expiry checks.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

// Check reports whether email is currently entitled. A missing record is a
// successful "not entitled" answer; any other store failure is returned so
// the caller can fail closed.
func (c *Checker) Check(ctx context.Context, email string) (*CheckResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res := &CheckResult{Email: email}

	rec, err := c.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return res, nil
		}
		return res, err
	}

	res.Subscription = rec
	res.HasActiveSubscription = IsEntitled(rec, c.now())
	return res, nil
}
