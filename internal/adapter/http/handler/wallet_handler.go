package handler

import (
	"strconv"

	"llm-billing-gateway/internal/adapter/http/dto"
	"llm-billing-gateway/internal/core/ports"
	"llm-billing-gateway/pkg/apperror"
	"llm-billing-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetWallet handles GET /api/v1/wallet. First access creates the wallet with
// the starting grant.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	wallet, err := h.walletSvc.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToWalletResponse(wallet))
}

// ListTransactions handles GET /api/v1/transactions?page=&limit=.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	page := parseQueryInt(c, "page", 1)
	limit := parseQueryInt(c, "limit", defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	result, err := h.walletSvc.GetTransactionsPage(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToTransactionListResponse(result))
}

func parseQueryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
