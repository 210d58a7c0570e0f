package credits

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
)

// Handler exposes credit endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches credit routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/credits", h.balance)
	rg.GET("/credits/ledger", h.ledger)
}

// RegisterDevRoutes attaches dev-only credit routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/credits/grant", h.grant)
}

func (h *Handler) balance(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	b, err := h.Svc.Balance(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch balance", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"balance":   b.Balance,
		"reserved":  b.Reserved,
		"available": b.Available(),
	})
}

func (h *Handler) ledger(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	entries, err := h.Svc.Ledger(c.Request.Context(), userID, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch ledger", nil)
		return
	}
	if entries == nil {
		entries = []LedgerEntry{}
	}
	respond.JSON(c, http.StatusOK, entries)
}

type grantRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

func (h *Handler) grant(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.Amount == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "amount must be non-zero", nil)
		return
	}
	if req.Reason == "" {
		req.Reason = "dev_grant"
	}

	b, err := h.Svc.Grant(c.Request.Context(), userID, req.Amount, req.Reason)
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to grant credits", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"balance": b.Balance})
}
