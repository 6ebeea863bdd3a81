package service

import (
	"context"
	"fmt"

	"llm-billing-gateway/config"
	"llm-billing-gateway/internal/core/domain"
	"llm-billing-gateway/internal/core/ports"
	"llm-billing-gateway/internal/metrics"
	"llm-billing-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerServiceImpl implements ports.Ledger: the two-phase authorize/settle
// protocol around billable work.
type LedgerServiceImpl struct {
	walletSvc ports.WalletService
	authStore ports.AuthorizationStore
	cfg       config.BillingConfig
	log       zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletSvc ports.WalletService,
	authStore ports.AuthorizationStore,
	cfg config.BillingConfig,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletSvc: walletSvc,
		authStore: authStore,
		cfg:       cfg,
		log:       log,
	}
}

// Authorize checks that the wallet can afford the estimate and issues an
// authorization token. The check is advisory: no funds are reserved, so the
// balance may still go negative when concurrent work settles. The token
// expires after the configured TTL if never settled or voided.
func (s *LedgerServiceImpl) Authorize(ctx context.Context, userID string, estimatedCost decimal.Decimal) (*domain.Authorization, error) {
	if estimatedCost.IsNegative() {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletSvc.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	if wallet.Balance.LessThan(estimatedCost) {
		metrics.AuthorizationsRejected.Inc()
		s.log.Info().
			Str("user_id", userID).
			Str("balance", wallet.Balance.StringFixed(domain.MoneyScale)).
			Str("estimate", estimatedCost.StringFixed(domain.MoneyScale)).
			Msg("authorization rejected: insufficient funds")
		return nil, apperror.ErrInsufficientFunds()
	}

	auth := domain.NewAuthorization(userID, estimatedCost)
	if err := s.authStore.Put(ctx, auth, s.cfg.AuthorizationTTL); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("store authorization: %w", err))
	}

	metrics.AuthorizationsIssued.Inc()
	s.log.Debug().
		Str("auth_id", auth.ID.String()).
		Str("user_id", userID).
		Str("estimate", auth.EstimatedCost.StringFixed(domain.MoneyScale)).
		Msg("authorization issued")

	return auth, nil
}

// Settle debits the actual cost against the authorization's wallet, exactly
// once. The claim on the pending authorization is atomic, so of any number
// of settle attempts for the same token only one reaches the wallet; the
// rest fail with AlreadySettled.
func (s *LedgerServiceImpl) Settle(ctx context.Context, auth *domain.Authorization, actualCost decimal.Decimal, description string) (*domain.Wallet, error) {
	if actualCost.IsNegative() {
		return nil, apperror.ErrInvalidAmount()
	}

	claimed, err := s.authStore.Claim(ctx, auth.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("claim authorization: %w", err))
	}
	if claimed == nil {
		metrics.SettlementsDuplicate.Inc()
		s.log.Error().
			Str("auth_id", auth.ID.String()).
			Str("user_id", auth.UserID).
			Msg("duplicate settle attempt")
		return nil, apperror.ErrAlreadySettled(auth.ID.String())
	}

	cost := domain.RoundMoney(actualCost)
	if cost.IsZero() {
		// Nothing to debit; the claim alone retires the authorization.
		wallet, err := s.walletSvc.GetOrCreateWallet(ctx, claimed.UserID)
		if err != nil {
			return nil, err
		}
		metrics.Settlements.Inc()
		return wallet, nil
	}

	wallet, err := s.walletSvc.AdjustBalance(ctx, claimed.UserID, cost.Neg(), description)
	if err != nil {
		return nil, err
	}

	metrics.Settlements.Inc()
	s.log.Info().
		Str("auth_id", auth.ID.String()).
		Str("user_id", claimed.UserID).
		Str("cost", cost.StringFixed(domain.MoneyScale)).
		Str("balance", wallet.Balance.StringFixed(domain.MoneyScale)).
		Msg("authorization settled")

	return wallet, nil
}

// Void retires an authorization whose work failed before producing a cost.
// It is a zero-cost settle: the claim retires the token and the wallet is
// untouched. Voiding an already-settled authorization fails the same way a
// duplicate settle does.
func (s *LedgerServiceImpl) Void(ctx context.Context, auth *domain.Authorization, reason string) error {
	claimed, err := s.authStore.Claim(ctx, auth.ID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("claim authorization: %w", err))
	}
	if claimed == nil {
		return apperror.ErrAlreadySettled(auth.ID.String())
	}

	metrics.AuthorizationsVoided.Inc()
	s.log.Info().
		Str("auth_id", auth.ID.String()).
		Str("user_id", claimed.UserID).
		Str("reason", reason).
		Msg("authorization voided")

	return nil
}
