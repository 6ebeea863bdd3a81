package service

import (
	"context"
	"errors"
	"testing"

	"llm-billing-gateway/internal/core/domain"
	"llm-billing-gateway/internal/core/ports"
	"llm-billing-gateway/internal/core/ports/mocks"
	"llm-billing-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type gatewayTestDeps struct {
	gw     *BillingGatewayImpl
	keySvc *mocks.MockKeyService
	ledger *mocks.MockLedger
	ctrl   *gomock.Controller
}

func setupBillingGateway(t *testing.T) *gatewayTestDeps {
	ctrl := gomock.NewController(t)
	d := &gatewayTestDeps{
		keySvc: mocks.NewMockKeyService(ctrl),
		ledger: mocks.NewMockLedger(ctrl),
		ctrl:   ctrl,
	}
	d.gw = NewBillingGateway(d.keySvc, d.ledger, zerolog.Nop())
	return d
}

func TestBillingGateway_WithBilling_APIKeyCaller(t *testing.T) {
	d := setupBillingGateway(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	estimate := decimal.RequireFromString("0.060")
	actual := decimal.RequireFromString("0.042")
	auth := domain.NewAuthorization("uid-1", estimate)

	d.keySvc.EXPECT().ResolveKey(ctx, "sk-abc").Return("uid-1", nil)
	d.ledger.EXPECT().Authorize(ctx, "uid-1", estimate).Return(auth, nil)
	d.ledger.EXPECT().Settle(ctx, auth, actual, "chat").
		Return(&domain.Wallet{UserID: "uid-1", Balance: decimal.RequireFromString("1.958")}, nil)

	work := func(_ context.Context) (*ports.WorkResult, error) {
		return &ports.WorkResult{Cost: actual, TokensUsed: 700}, nil
	}

	outcome, err := d.gw.WithBilling(ctx, ports.Caller{APIKey: "sk-abc"}, estimate, "chat", work)
	require.NoError(t, err)
	assert.Equal(t, "1.958", outcome.Balance.StringFixed(3))
	assert.Equal(t, 700, outcome.Result.TokensUsed)
}

func TestBillingGateway_WithBilling_UserCaller(t *testing.T) {
	d := setupBillingGateway(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	estimate := decimal.RequireFromString("0.002")
	auth := domain.NewAuthorization("uid-7", estimate)

	// Verified user IDs skip key resolution entirely.
	d.ledger.EXPECT().Authorize(ctx, "uid-7", estimate).Return(auth, nil)
	d.ledger.EXPECT().Settle(ctx, auth, estimate, "chat").
		Return(&domain.Wallet{UserID: "uid-7", Balance: decimal.RequireFromString("1.998")}, nil)

	work := func(_ context.Context) (*ports.WorkResult, error) {
		return &ports.WorkResult{Cost: estimate}, nil
	}

	_, err := d.gw.WithBilling(ctx, ports.Caller{UserID: "uid-7"}, estimate, "chat", work)
	assert.NoError(t, err)
}

func TestBillingGateway_WithBilling_NoCaller(t *testing.T) {
	d := setupBillingGateway(t)
	defer d.ctrl.Finish()

	work := func(_ context.Context) (*ports.WorkResult, error) {
		t.Fatal("work must not run without a caller")
		return nil, nil
	}

	_, err := d.gw.WithBilling(context.Background(), ports.Caller{}, decimal.Zero, "chat", work)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestBillingGateway_WithBilling_RevokedKey(t *testing.T) {
	d := setupBillingGateway(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.keySvc.EXPECT().ResolveKey(ctx, "sk-gone").Return("", apperror.ErrInvalidCredential())

	work := func(_ context.Context) (*ports.WorkResult, error) {
		t.Fatal("work must not run with a revoked key")
		return nil, nil
	}

	_, err := d.gw.WithBilling(ctx, ports.Caller{APIKey: "sk-gone"}, decimal.Zero, "chat", work)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_002", appErr.Code)
}

func TestBillingGateway_WithBilling_FailedWorkVoids(t *testing.T) {
	d := setupBillingGateway(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	estimate := decimal.RequireFromString("0.060")
	auth := domain.NewAuthorization("uid-1", estimate)
	upstreamErr := apperror.ErrUpstreamFailure(errors.New("connection reset"))

	d.ledger.EXPECT().Authorize(ctx, "uid-1", estimate).Return(auth, nil)
	// Failed work voids the authorization; nothing is settled.
	d.ledger.EXPECT().Void(ctx, auth, "work failed").Return(nil)

	work := func(_ context.Context) (*ports.WorkResult, error) {
		return nil, upstreamErr
	}

	_, err := d.gw.WithBilling(ctx, ports.Caller{UserID: "uid-1"}, estimate, "chat", work)
	assert.ErrorIs(t, err, upstreamErr)
}

func TestBillingGateway_WithBilling_InsufficientFunds(t *testing.T) {
	d := setupBillingGateway(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	estimate := decimal.RequireFromString("9.000")

	d.ledger.EXPECT().Authorize(ctx, "uid-1", estimate).Return(nil, apperror.ErrInsufficientFunds())

	work := func(_ context.Context) (*ports.WorkResult, error) {
		t.Fatal("work must not run when authorization is rejected")
		return nil, nil
	}

	_, err := d.gw.WithBilling(ctx, ports.Caller{UserID: "uid-1"}, estimate, "chat", work)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "BIL_001", appErr.Code)
}
