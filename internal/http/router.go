package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/vinoplan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/vinoplan-backend/internal/http/middleware"
	"github.com/yungbote/vinoplan-backend/internal/observability"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log                *logger.Logger
	Metrics            *observability.Metrics
	ServiceName        string
	CORSOrigins        []string
	AdminToken         string
	IdentityMiddleware *httpMW.IdentityMiddleware

	PlanHandler   *httpH.PlanHandler
	WarmupHandler *httpH.WarmupHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.IdentityMiddleware != nil {
		api.Use(cfg.IdentityMiddleware.Attach())
	}

	// Plans
	if cfg.PlanHandler != nil {
		api.POST("/plans/generate", cfg.PlanHandler.Generate)
		api.GET("/plans/quota", cfg.PlanHandler.Quota)
		api.GET("/plans/:id", cfg.PlanHandler.Get)
	}

	// Warmup (operators)
	if cfg.WarmupHandler != nil {
		warmup := api.Group("/warmup", httpMW.RequireAdminToken(cfg.AdminToken))
		warmup.POST("/trigger", cfg.WarmupHandler.Trigger)
		warmup.GET("/status", cfg.WarmupHandler.Status)
	}

	return r
}
