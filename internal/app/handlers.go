package app

import (
	"context"

	"gorm.io/gorm"

	httpH "github.com/yungbote/vinoplan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/vinoplan-backend/internal/http/middleware"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

type Handlers struct {
	Plan     *httpH.PlanHandler
	Warmup   *httpH.WarmupHandler
	Health   *httpH.HealthHandler
	Identity *httpMW.IdentityMiddleware
}

func wireHandlers(log *logger.Logger, theDB *gorm.DB, clients Clients, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]httpH.Pinger{
		"db": func(ctx context.Context) error {
			sqlDB, err := theDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if clients.Redis != nil {
		rdb := clients.Redis
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return Handlers{
		Plan:     httpH.NewPlanHandler(log, serviceset.PlanGenerator),
		Warmup:   httpH.NewWarmupHandler(log, serviceset.Warmup),
		Health:   httpH.NewHealthHandler(checks),
		Identity: httpMW.NewIdentityMiddleware(log, serviceset.Identity),
	}
}
