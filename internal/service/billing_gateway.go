package service

import (
	"context"

	"llm-billing-gateway/internal/core/domain"
	"llm-billing-gateway/internal/core/ports"
	"llm-billing-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BillingGatewayImpl implements ports.BillingGateway: the single entry point
// the AI-invocation side uses to wrap a unit of work in the authorize/settle
// protocol.
type BillingGatewayImpl struct {
	keySvc ports.KeyService
	ledger ports.Ledger
	log    zerolog.Logger
}

// NewBillingGateway creates a new BillingGatewayImpl.
func NewBillingGateway(keySvc ports.KeyService, ledger ports.Ledger, log zerolog.Logger) *BillingGatewayImpl {
	return &BillingGatewayImpl{
		keySvc: keySvc,
		ledger: ledger,
		log:    log,
	}
}

// WithBilling resolves the caller, authorizes the estimate, runs the work,
// and settles the work's actual cost. Failed work voids the authorization so
// nothing is charged. The work's cost may exceed the estimate; the actual
// cost is always what gets debited.
func (g *BillingGatewayImpl) WithBilling(
	ctx context.Context,
	caller ports.Caller,
	estimatedCost decimal.Decimal,
	description string,
	work ports.WorkFunc,
) (*ports.BillingOutcome, error) {
	userID, err := g.resolveCaller(ctx, caller)
	if err != nil {
		return nil, err
	}

	auth, err := g.ledger.Authorize(ctx, userID, estimatedCost)
	if err != nil {
		return nil, err
	}

	result, err := work(ctx)
	if err != nil {
		if voidErr := g.ledger.Void(ctx, auth, "work failed"); voidErr != nil {
			g.log.Error().Err(voidErr).
				Str("auth_id", auth.ID.String()).
				Msg("failed to void authorization after work failure")
		}
		return nil, err
	}

	wallet, err := g.ledger.Settle(ctx, auth, result.Cost, description)
	if err != nil {
		return nil, err
	}

	return &ports.BillingOutcome{
		Result:  result,
		Balance: wallet.Balance,
	}, nil
}

// resolveCaller maps the caller to the paying user. API keys resolve through
// the registry; a key revoked between mint and use fails here as an invalid
// credential.
func (g *BillingGatewayImpl) resolveCaller(ctx context.Context, caller ports.Caller) (string, error) {
	if caller.UserID != "" {
		return caller.UserID, nil
	}
	if caller.APIKey == "" {
		return "", apperror.ErrUnauthorized()
	}

	userID, err := g.keySvc.ResolveKey(ctx, caller.APIKey)
	if err != nil {
		g.log.Debug().
			Str("key_fp", domain.KeyFingerprint(caller.APIKey)).
			Msg("api key resolution failed")
		return "", err
	}
	return userID, nil
}
