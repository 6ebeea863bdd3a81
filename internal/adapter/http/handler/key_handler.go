package handler

import (
	"time"

	"llm-billing-gateway/internal/adapter/http/dto"
	"llm-billing-gateway/internal/adapter/http/middleware"
	"llm-billing-gateway/internal/core/domain"
	"llm-billing-gateway/internal/core/ports"
	"llm-billing-gateway/pkg/apperror"
	"llm-billing-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// KeyHandler handles API key registry endpoints.
type KeyHandler struct {
	keySvc   ports.KeyService
	auditSvc ports.AuditService // nil = audit logging disabled
}

// NewKeyHandler creates a new KeyHandler.
func NewKeyHandler(keySvc ports.KeyService, auditSvc ports.AuditService) *KeyHandler {
	return &KeyHandler{keySvc: keySvc, auditSvc: auditSvc}
}

// Create handles POST /api/v1/api-keys.
func (h *KeyHandler) Create(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	key, err := h.keySvc.CreateKey(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.audit(c, userID, domain.AuditActionKeyCreate, domain.KeyFingerprint(key.Key))
	response.Created(c, dto.ToKeyResponse(key))
}

// List handles GET /api/v1/api-keys.
func (h *KeyHandler) List(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	keys, err := h.keySvc.ListKeys(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.KeyResponse, 0, len(keys))
	for i := range keys {
		items = append(items, dto.ToKeyResponse(&keys[i]))
	}
	response.OK(c, dto.KeyListResponse{Keys: items})
}

// Revoke handles DELETE /api/v1/api-keys/:key.
func (h *KeyHandler) Revoke(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	key := c.Param("key")
	if err := h.keySvc.RevokeKey(c.Request.Context(), userID, key); err != nil {
		response.Error(c, err)
		return
	}

	h.audit(c, userID, domain.AuditActionKeyRevoke, domain.KeyFingerprint(key))
	response.OK(c, gin.H{"revoked": true})
}

func (h *KeyHandler) audit(c *gin.Context, userID string, action domain.AuditAction, resourceID string) {
	if h.auditSvc == nil {
		return
	}
	h.auditSvc.Log(c.Request.Context(), &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       userID,
		Action:       action,
		ResourceType: "api_key",
		ResourceID:   resourceID,
		IPAddress:    c.ClientIP(),
		CreatedAt:    time.Now().UTC(),
	})
}

// callerUserID pulls the verified user ID set by the auth middleware.
func callerUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok && userID != ""
}
