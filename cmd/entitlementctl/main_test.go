package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BizDesk/app/models"
	"github.com/ManuelReschke/BizDesk/internal/pkg/entitlements"
)

type checkerFunc func(ctx context.Context, email string) (*entitlements.CheckResult, error)

func (f checkerFunc) Check(ctx context.Context, email string) (*entitlements.CheckResult, error) {
	return f(ctx, email)
}

func TestRunCheckEntitled(t *testing.T) {
	checker := checkerFunc(func(_ context.Context, email string) (*entitlements.CheckResult, error) {
		return &entitlements.CheckResult{
			Email:                 email,
			HasActiveSubscription: true,
			Subscription:          &models.EntitlementRecord{Email: email, Status: models.BillingStatusActive},
		}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := runCheck(ctx, checker, "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, snap.HasActiveSubscription)
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)

	var out bytes.Buffer
	require.NoError(t, printSnapshot(&out, snap))
	assert.Contains(t, out.String(), `"hasActiveSubscription": true`)
}

func TestRunCheckReportsQueryFailure(t *testing.T) {
	checker := checkerFunc(func(context.Context, string) (*entitlements.CheckResult, error) {
		return nil, errors.New("connection refused")
	})

	snap, err := runCheck(context.Background(), checker, "buyer@example.com")
	require.NoError(t, err)
	assert.False(t, snap.HasActiveSubscription)
	assert.Error(t, snap.Err)
	assert.Equal(t, "entitlement_check_failed", snap.Error)
}

func TestStatusLabelCommand(t *testing.T) {
	cmd := statusLabelCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"past_due"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Past due\n", out.String())
}
