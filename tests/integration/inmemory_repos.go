package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"llm-billing-gateway/internal/core/domain"
	"llm-billing-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// In-memory repository fakes for integration tests. They satisfy the postgres
// ports with mutex-guarded maps so the real services, handlers, and Redis
// stores can be exercised end-to-end without a database.

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.Mutex
	wallets map[string]*domain.Wallet
	entries map[string][]domain.Transaction
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{
		wallets: make(map[string]*domain.Wallet),
		entries: make(map[string][]domain.Transaction),
	}
}

func (r *inMemoryWalletRepo) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) CreateIfAbsent(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[wallet.UserID]; ok {
		return false, nil
	}
	cp := *wallet
	r.wallets[wallet.UserID] = &cp
	return true, nil
}

func (r *inMemoryWalletRepo) AddToBalance(ctx context.Context, tx pgx.Tx, userID string, delta decimal.Decimal) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, nil
	}
	w.Balance = w.Balance.Add(delta)
	w.UpdatedAt = time.Now().UTC()
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) InsertTransaction(ctx context.Context, tx pgx.Tx, userID string, txn *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[userID] = append(r.entries[userID], *txn)
	return nil
}

func (r *inMemoryWalletRepo) ListTransactions(ctx context.Context, userID string, txType domain.TransactionType, offset, limit int) ([]domain.Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matching []domain.Transaction
	// Newest first: entries are appended in order, so walk backwards.
	all := r.entries[userID]
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Type == txType {
			matching = append(matching, all[i])
		}
	}

	total := int64(len(matching))
	if offset >= len(matching) {
		return []domain.Transaction{}, total, nil
	}
	end := offset + limit
	if end > len(matching) {
		end = len(matching)
	}
	return matching[offset:end], total, nil
}

// --- In-Memory Key Repo ---

type inMemoryKeyRepo struct {
	mu        sync.Mutex
	keys      map[string]*domain.APIKey
	userLocks map[string]*sync.Mutex
}

func newInMemoryKeyRepo() *inMemoryKeyRepo {
	return &inMemoryKeyRepo{
		keys:      make(map[string]*domain.APIKey),
		userLocks: make(map[string]*sync.Mutex),
	}
}

// LockUser emulates the per-user advisory lock: it acquires a user-scoped
// mutex that is held until the surrounding fake transaction finishes.
func (r *inMemoryKeyRepo) LockUser(ctx context.Context, tx pgx.Tx, userID string) error {
	r.mu.Lock()
	mu, ok := r.userLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		r.userLocks[userID] = mu
	}
	r.mu.Unlock()

	mu.Lock()
	if mt, ok := tx.(*memTx); ok {
		mt.onRelease(mu.Unlock)
	} else {
		mu.Unlock()
	}
	return nil
}

func (r *inMemoryKeyRepo) CountByUser(ctx context.Context, tx pgx.Tx, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, k := range r.keys {
		if k.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *inMemoryKeyRepo) Insert(ctx context.Context, tx pgx.Tx, key *domain.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *key
	r.keys[key.Key] = &cp
	return nil
}

func (r *inMemoryKeyRepo) DeleteOwned(ctx context.Context, key string, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[key]
	if !ok || k.UserID != userID {
		return false, nil
	}
	delete(r.keys, key)
	return true, nil
}

func (r *inMemoryKeyRepo) GetByKey(ctx context.Context, key string) (*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[key]
	if !ok {
		return nil, nil
	}
	cp := *k
	return &cp, nil
}

func (r *inMemoryKeyRepo) ListByUser(ctx context.Context, userID string) ([]domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.APIKey
	for _, k := range r.keys {
		if k.UserID == userID {
			out = append(out, *k)
		}
	}
	// Newest first, matching the postgres ordering.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{}, nil
}

// memTx is a no-op pgx.Tx for in-memory testing. It carries release hooks so
// fakes can hold locks for the duration of the transaction, mirroring
// transaction-scoped advisory locks.
type memTx struct {
	mu       sync.Mutex
	released bool
	releases []func()
}

func (t *memTx) onRelease(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releases = append(t.releases, fn)
}

func (t *memTx) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	for i := len(t.releases) - 1; i >= 0; i-- {
		t.releases[i]()
	}
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { t.release(); return nil }
func (t *memTx) Rollback(ctx context.Context) error        { t.release(); return nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }

// --- Stub upstream completer ---

// stubCompleter stands in for the upstream model and reports fixed token
// usage, so chat costs are deterministic.
type stubCompleter struct {
	result ports.ChatResult
	err    error
}

func (s *stubCompleter) Complete(ctx context.Context, req ports.ChatRequest) (*ports.ChatResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	cp := s.result
	return &cp, nil
}
