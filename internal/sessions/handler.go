package sessions

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
)

// Handler exposes generation endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches generation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/portfolio/generate", h.generate)
	rg.GET("/portfolio/sessions/:id/bundle", h.downloadBundle)
}

type generateRequest struct {
	ResumeID   string            `json:"resumeId"`
	TemplateID string            `json:"templateId"`
	Options    map[string]string `json:"options"`
	ForceNew   bool              `json:"forceNew"`
}

func (h *Handler) generate(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	result, err := h.Svc.GetOrCreate(c.Request.Context(), userID, req.ResumeID, req.TemplateID, req.Options, req.ForceNew)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "access_denied", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate portfolio", nil)
		}
		return
	}

	status := http.StatusOK
	if result.Outcome == OutcomeCreated {
		status = http.StatusCreated
	}
	respond.JSON(c, status, gin.H{
		"sessionId":   result.Session.ID,
		"reused":      result.Outcome == OutcomeReused,
		"fingerprint": result.Session.Fingerprint,
		"status":      result.Session.Status,
		"bundleUrl":   bundleURL(c, result.Session.ID),
		"previewHtml": result.Session.PreviewHTML,
		"createdAt":   result.Session.CreatedAt,
	})
}

// bundleURL points at the download route under the same API prefix the
// generate request came in on.
func bundleURL(c *gin.Context, sessionID string) string {
	base := strings.TrimSuffix(c.Request.URL.Path, "/generate")
	return base + "/sessions/" + sessionID + "/bundle"
}

func (h *Handler) downloadBundle(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	sessionID := c.Param("id")

	rc, err := h.Svc.OpenBundle(c.Request.Context(), userID, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open bundle", nil)
		}
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="portfolio.zip"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}
