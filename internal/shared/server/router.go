package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"applykit-backend/internal/account"
	"applykit-backend/internal/extract"
	"applykit-backend/internal/gate"
	"applykit-backend/internal/generation"
	"applykit-backend/internal/jobmeta"
	"applykit-backend/internal/kits"
	"applykit-backend/internal/pipeline"
	"applykit-backend/internal/services/health"
	"applykit-backend/internal/shared/config"
	"applykit-backend/internal/shared/metrics"
	"applykit-backend/internal/shared/server/middleware"
	"applykit-backend/internal/shared/server/respond"
)

// RouterDeps holds the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config            config.Config
	Health            *health.Service
	GateHandler       *gate.Handler
	JobMetaHandler    *jobmeta.Handler
	GenerationHandler *generation.Handler
	KitsHandler       *kits.Handler
	PipelineHandler   *pipeline.Handler
	ExtractHandler    *extract.Handler
	AccountHandler    *account.Handler
	RateLimiter       *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	api.Use(
		middleware.Auth(),
		middleware.RateLimit(deps.RateLimiter, middleware.DefaultQuotas),
	)
	registerMeRoutes(api)

	if deps.GateHandler != nil {
		deps.GateHandler.RegisterRoutes(api)
	}
	if deps.JobMetaHandler != nil {
		deps.JobMetaHandler.RegisterRoutes(api)
	}
	if deps.GenerationHandler != nil {
		deps.GenerationHandler.RegisterRoutes(api)
	}
	if deps.PipelineHandler != nil {
		deps.PipelineHandler.RegisterRoutes(api)
	}
	if deps.KitsHandler != nil {
		deps.KitsHandler.RegisterRoutes(api)
	}
	if deps.ExtractHandler != nil {
		deps.ExtractHandler.RegisterRoutes(api)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(api)
	}

	return r
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
