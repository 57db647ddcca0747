package models

// Billing provider constants used across billing-related models.
const (
	BillingProviderStripe = "stripe"
)

// Subscription statuses stored on entitlement records. Provider statuses
// outside this set are stored verbatim and never entitle.
const (
	BillingStatusActive   = "active"
	BillingStatusInactive = "inactive"
	BillingStatusCanceled = "canceled"
	BillingStatusPastDue  = "past_due"
	BillingStatusTrialing = "trialing"
)
