package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/heirloom-backend/internal/http/handlers"
	httpMW "github.com/yungbote/heirloom-backend/internal/http/middleware"
	"github.com/yungbote/heirloom-backend/internal/observability"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics
	// ServiceName enables request spans when set.
	ServiceName string
	CORSOrigins []string

	ActorMiddleware *httpMW.ActorMiddleware

	DuplicateHandler *httpH.DuplicateHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readycheck", cfg.HealthHandler.ReadyCheck)
	}

	api := r.Group("/api")

	mutating := api.Group("/")
	if cfg.ActorMiddleware != nil {
		mutating.Use(cfg.ActorMiddleware.RequireActor())
	}

	if h := cfg.DuplicateHandler; h != nil {
		// Candidates
		api.GET("/families/:id/duplicates", h.ListPending)
		api.GET("/duplicates/:id", h.GetCandidate)
		mutating.POST("/families/:id/duplicates/scan", h.Scan)
		mutating.POST("/duplicates/:id/dismiss", h.Dismiss)

		// Merges
		mutating.POST("/duplicates/:id/merge", h.MergeCandidate)
		mutating.POST("/families/:id/merges", h.MergePair)
		api.GET("/families/:id/merges", h.ListHistory)
		api.GET("/merges/:id", h.GetHistory)

		// Persons
		api.GET("/persons/:id/resolve", h.ResolvePerson)
	}

	return r
}
