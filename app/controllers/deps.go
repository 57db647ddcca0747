package controllers

import (
	"github.com/ManuelReschke/BizDesk/internal/pkg/archive"
	"github.com/ManuelReschke/BizDesk/internal/pkg/billing"
	"github.com/ManuelReschke/BizDesk/internal/pkg/entitlements"
	"github.com/ManuelReschke/BizDesk/internal/pkg/gate"
	"github.com/ManuelReschke/BizDesk/internal/pkg/identity"
	"github.com/ManuelReschke/BizDesk/internal/pkg/metrics"
)

// Dependencies are the services the HTTP handlers run against.
type Dependencies struct {
	Billing       *billing.Service
	Entitlements  *entitlements.Checker
	Identity      *identity.Provisioner
	Gates         *gate.Registry
	Archive       archive.Archiver
	Metrics       *metrics.Metrics
	WebhookSecret string
}

var deps Dependencies

// Configure installs the handler dependencies. Call once during boot.
func Configure(d Dependencies) {
	deps = d
}
