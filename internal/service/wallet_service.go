package service

import (
	"context"
	"fmt"
	"time"

	"llm-billing-gateway/config"
	"llm-billing-gateway/internal/core/domain"
	"llm-billing-gateway/internal/core/ports"
	"llm-billing-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo      ports.WalletRepository
	transactor      ports.DBTransactor
	startingBalance decimal.Decimal
	log             zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	cfg config.BillingConfig,
	log zerolog.Logger,
) (*WalletServiceImpl, error) {
	starting, err := decimal.NewFromString(cfg.StartingBalance)
	if err != nil {
		return nil, fmt.Errorf("parse starting balance %q: %w", cfg.StartingBalance, err)
	}
	return &WalletServiceImpl{
		walletRepo:      walletRepo,
		transactor:      transactor,
		startingBalance: domain.RoundMoney(starting),
		log:             log,
	}, nil
}

// GetOrCreateWallet returns the user's wallet, creating it with the starting
// grant on first access. Concurrent first access is safe: the insert is
// conditional in the store, so exactly one caller creates the wallet and
// writes the seed ledger entry; everyone else reads the surviving row.
func (s *WalletServiceImpl) GetOrCreateWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	fresh := &domain.Wallet{
		UserID:    userID,
		Balance:   s.startingBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.walletRepo.CreateIfAbsent(ctx, dbTx, fresh)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	if created {
		seed := &domain.Transaction{
			Type:        domain.TransactionTypeCredit,
			Amount:      s.startingBalance,
			Description: domain.SeedDescription,
			Timestamp:   now,
		}
		if err := s.walletRepo.InsertTransaction(ctx, dbTx, userID, seed); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("insert seed transaction: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}

		s.log.Info().
			Str("user_id", userID).
			Str("balance", s.startingBalance.StringFixed(domain.MoneyScale)).
			Msg("wallet created with starting grant")

		return fresh, nil
	}

	// Lost the race: another request created the wallet first. Read it back.
	wallet, err = s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reread wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.InternalError(fmt.Errorf("wallet for user %s vanished after insert conflict", userID))
	}
	return wallet, nil
}

// AdjustBalance applies a signed adjustment and its ledger entry atomically.
// The balance mutation happens entirely in the store (increment, never
// read-then-write), so concurrent adjustments cannot lose updates.
func (s *WalletServiceImpl) AdjustBalance(ctx context.Context, userID string, signedAmount decimal.Decimal, description string) (*domain.Wallet, error) {
	if signedAmount.IsZero() {
		return nil, apperror.ErrInvalidAmount()
	}
	delta := domain.RoundMoney(signedAmount)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.AddToBalance(ctx, dbTx, userID, delta)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("adjust balance: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	txn := domain.TransactionFromAdjustment(delta, description, time.Now().UTC())
	if err := s.walletRepo.InsertTransaction(ctx, dbTx, userID, &txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("insert transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("user_id", userID).
		Str("delta", delta.StringFixed(domain.MoneyScale)).
		Str("balance", wallet.Balance.StringFixed(domain.MoneyScale)).
		Str("description", description).
		Msg("balance adjusted")

	return wallet, nil
}

// GetTransactionsPage returns one page of the user's CREDIT entries, newest
// first, with the total count of CREDIT entries. Page and limit below 1 are
// clamped to 1.
func (s *WalletServiceImpl) GetTransactionsPage(ctx context.Context, userID string, page, limit int) (*ports.TransactionsPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	offset := (page - 1) * limit

	txns, total, err := s.walletRepo.ListTransactions(ctx, userID, domain.TransactionTypeCredit, offset, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}

	return &ports.TransactionsPage{
		Transactions: txns,
		TotalCount:   total,
		Page:         page,
		Limit:        limit,
	}, nil
}
