package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"llm-billing-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// recordingAuditRepo captures entries for assertions across goroutines.
type recordingAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
	done    chan struct{}
}

func (r *recordingAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func TestAuditService_Log_Persists(t *testing.T) {
	repo := &recordingAuditRepo{done: make(chan struct{}, 1)}
	svc := NewAuditService(repo, zerolog.Nop())

	entry := &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       "uid-1",
		Action:       domain.AuditActionKeyCreate,
		ResourceType: "api_key",
		ResourceID:   domain.KeyFingerprint("sk-abc"),
		IPAddress:    "1.2.3.4",
		CreatedAt:    time.Now().UTC(),
	}
	svc.Log(context.Background(), entry)

	select {
	case <-repo.done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit entry was never persisted")
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Len(t, repo.entries, 1)
	assert.Equal(t, domain.AuditActionKeyCreate, repo.entries[0].Action)
}

func TestAuditService_Log_NilRepo(t *testing.T) {
	svc := NewAuditService(nil, zerolog.Nop())

	// Must not panic when only logging.
	svc.Log(context.Background(), &domain.AuditLog{
		ID:     uuid.New(),
		Action: domain.AuditActionKeyRevoke,
	})
}
