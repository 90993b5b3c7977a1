package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/heirloom-backend/internal/http"
	httpH "github.com/yungbote/heirloom-backend/internal/http/handlers"
	httpMW "github.com/yungbote/heirloom-backend/internal/http/middleware"
	"github.com/yungbote/heirloom-backend/internal/observability"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

type Middleware struct {
	Actor *httpMW.ActorMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	Duplicate *httpH.DuplicateHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(db),
		Duplicate: httpH.NewDuplicateHandler(log, services.Duplicates),
	}
}

func wireMiddleware(log *logger.Logger) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Actor: httpMW.NewActorMiddleware(log),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      cfg.ServiceName,
		CORSOrigins:      cfg.CORSOrigins,
		ActorMiddleware:  middleware.Actor,
		DuplicateHandler: handlers.Duplicate,
		HealthHandler:    handlers.Health,
	})
}
