package deployments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/credits"
	"portfolio-backend/internal/drivers"
	"portfolio-backend/internal/platformlinks"
	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
)

// Handler exposes deployment endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches deployment routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/portfolio/deploy", h.deploy)
	rg.POST("/portfolio/redeploy", h.redeploy)
	rg.GET("/portfolio/sessions", h.listSessions)
	rg.DELETE("/portfolio/sessions/:id", h.deleteSession)
}

type deployRequest struct {
	SessionID    string `json:"sessionId"`
	Platform     string `json:"platform"`
	RepoName     string `json:"repoName"`
	CustomDomain string `json:"customDomain"`
}

func (h *Handler) deploy(c *gin.Context) {
	h.runDeploy(c, false)
}

func (h *Handler) redeploy(c *gin.Context) {
	h.runDeploy(c, true)
}

func (h *Handler) runDeploy(c *gin.Context, redeploy bool) {
	userID := middleware.UserIDFromContext(c)

	var req deployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.SessionID == "" || req.Platform == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "sessionId and platform are required", nil)
		return
	}

	var outcome Outcome
	var err error
	if redeploy {
		outcome, err = h.Svc.Redeploy(c.Request.Context(), userID, req.SessionID, req.Platform, req.RepoName, req.CustomDomain)
	} else {
		outcome, err = h.Svc.Deploy(c.Request.Context(), userID, req.SessionID, req.Platform, req.RepoName, req.CustomDomain)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{
		"deploymentId": outcome.Deployment.ID,
		"sessionId":    outcome.Deployment.SessionID,
		"platform":     outcome.Deployment.Platform,
		"status":       outcome.Deployment.Status,
		"liveUrl":      outcome.Deployment.LiveURL,
		"repoRef":      outcome.Deployment.RemoteRef,
		"creditsSpent": outcome.Deployment.CreditsSpent,
		"reused":       outcome.Reused,
	}
	if outcome.Deployment.CustomDomain != "" {
		body["customDomain"] = outcome.Deployment.CustomDomain
	}
	if outcome.DNS != nil {
		body["dnsInstructions"] = outcome.DNS
	}
	respond.JSON(c, http.StatusOK, body)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var short *credits.InsufficientCreditsError
	switch {
	case errors.As(err, &short):
		respond.Error(c, http.StatusPaymentRequired, "insufficient_credits", err.Error(), gin.H{
			"required":  short.Required,
			"available": short.Available,
			"shortfall": short.Shortfall(),
		})
	case errors.Is(err, platformlinks.ErrNotLinked):
		respond.Error(c, http.StatusForbidden, "access_denied", "platform account is not linked", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, drivers.ErrPlatform):
		respond.Error(c, http.StatusBadGateway, "platform_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "deployment failed", nil)
	}
}

func (h *Handler) listSessions(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	summaries, err := h.Svc.ListSessions(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list sessions", nil)
		return
	}

	out := make([]gin.H, 0, len(summaries))
	for _, s := range summaries {
		deps := make([]gin.H, 0, len(s.Deployments))
		for _, d := range s.Deployments {
			item := gin.H{
				"deploymentId": d.ID,
				"platform":     d.Platform,
				"status":       d.Status,
				"liveUrl":      d.LiveURL,
				"repoRef":      d.RemoteRef,
				"creditsSpent": d.CreditsSpent,
				"deployedAt":   d.DeployedAt,
			}
			if d.ReplacedAt != nil {
				item["replacedAt"] = d.ReplacedAt
			}
			deps = append(deps, item)
		}
		out = append(out, gin.H{
			"sessionId":         s.Session.ID,
			"resumeId":          s.Session.ResumeID,
			"templateId":        s.Session.TemplateID,
			"status":            s.Session.Status,
			"createdAt":         s.Session.CreatedAt,
			"deployments":       deps,
			"totalCreditsSpent": s.TotalSpent,
		})
	}
	respond.OK(c, gin.H{"sessions": out})
}

func (h *Handler) deleteSession(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	sessionID := c.Param("id")

	outcome, err := h.Svc.DeleteSession(c.Request.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete session", nil)
		return
	}

	body := gin.H{
		"message":       "session deleted",
		"localRemoved":  true,
		"remoteRemoved": outcome.RemoteRemoved,
	}
	if len(outcome.Warnings) > 0 {
		body["warnings"] = outcome.Warnings
	}
	respond.OK(c, body)
}
