package constants

// Browser-facing routes
const (
	RouteDashboard            = "/dashboard"
	RouteSubscriptionRequired = "/subscription-required"
	RouteBillingRefresh       = "/billing/refresh"
	RouteBillingStatus        = "/billing/status"
	// Goth keeps its own session on these; the user context middleware skips them
	RouteOAuthPrefix = "/auth/oauth"
)
