package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
)

// RouteRegistrar attaches a feature's routes to a router group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// DevRouteRegistrar attaches dev-only routes.
type DevRouteRegistrar interface {
	RegisterDevRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config      config.Config
	Handlers    []RouteRegistrar
	DevHandlers []DevRouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
	)
	if deps.Config.Env == "production" || deps.Config.Env == "staging" {
		r.Use(middleware.RateLimit(rateLimits()))
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	registerMeRoutes(api)

	for _, h := range deps.Handlers {
		h.RegisterRoutes(api)
	}
	if deps.Config.Env == "dev" || deps.Config.Env == "local" {
		dev := api.Group("/dev")
		for _, h := range deps.DevHandlers {
			h.RegisterDevRoutes(dev)
		}
	}

	return r
}

// rateLimits throttles the expensive operations per principal.
// Generation is render-bound; deploys fan out to third-party APIs.
func rateLimits() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"GENERATE": {Rate: 0.5, Burst: 5},
			"DEPLOY":   {Rate: 0.2, Burst: 3},
		},
		GroupFor: func(c *gin.Context) string {
			path := c.FullPath()
			switch {
			case strings.HasSuffix(path, "/portfolio/generate"):
				return "GENERATE"
			case strings.HasSuffix(path, "/portfolio/deploy"), strings.HasSuffix(path, "/portfolio/redeploy"):
				return "DEPLOY"
			}
			return ""
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
