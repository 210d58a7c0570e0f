package platformlinks

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
)

// Handler exposes platform link endpoints.
type Handler struct {
	Svc *Service
	// Available holds the deployable platform names, in listing order.
	Available []string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, available []string) *Handler {
	return &Handler{Svc: svc, Available: available}
}

// RegisterRoutes attaches platform routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/platforms", h.list)
}

// RegisterDevRoutes attaches dev-only platform routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/platforms/:platform/link", h.link)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	links, err := h.Svc.List(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list platforms", nil)
		return
	}

	linkedAt := make(map[string]PlatformLink, len(links))
	for _, link := range links {
		linkedAt[link.Platform] = link
	}

	resp := make([]gin.H, 0, len(h.Available))
	for _, platform := range h.Available {
		item := gin.H{"platform": platform, "linked": false}
		if link, ok := linkedAt[platform]; ok {
			item["linked"] = true
			item["linkedAt"] = link.LinkedAt
		}
		resp = append(resp, item)
	}
	respond.JSON(c, http.StatusOK, resp)
}

type linkRequest struct {
	Token string `json:"token"`
}

func (h *Handler) link(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	platform := c.Param("platform")

	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	if err := h.Svc.Link(c.Request.Context(), userID, platform, req.Token); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"platform": platform, "linked": true})
}
