package app

import (
	"fmt"
	"time"

	"github.com/yungbote/vinoplan-backend/internal/jobs/pipeline/plan_warmup"
	"github.com/yungbote/vinoplan-backend/internal/jobs/steprun"
	"github.com/yungbote/vinoplan-backend/internal/jobs/worker"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/policy"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
	"github.com/yungbote/vinoplan-backend/internal/platform/redis"
	"github.com/yungbote/vinoplan-backend/internal/services"
	"github.com/yungbote/vinoplan-backend/internal/temporalx/temporalworker"
	"github.com/yungbote/vinoplan-backend/internal/temporalx/warmuprun"
)

type Services struct {
	Policies      *policy.Table
	PlanCache     services.PlanCache
	RateLimiter   services.RateLimiter
	PlanGenerator services.PlanGenerator
	Identity      services.IdentityService
	Engine        *steprun.Engine
	Warmup        services.WarmupService

	// Exactly one of these drives warmup runs.
	LocalWorker    *worker.Worker
	TemporalWorker *temporalworker.Runner
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	now := func() time.Time { return time.Now().UTC() }

	policies, err := policy.Load(cfg.TierPolicyFile)
	if err != nil {
		return Services{}, fmt.Errorf("load tier policies: %w", err)
	}

	var hot services.HotCache
	if clients.Redis != nil {
		hot = redis.NewPlanCacheLayer(clients.Redis, cfg.RedisCacheTTL)
	}
	cache := services.NewPlanCache(log, reposet.PlanCacheEntry, hot, now)
	limiter := services.NewRateLimiter(log, reposet.GenerationLog, policies, now)
	generator := services.NewPlanGenerator(log, policies, limiter, cache, clients.AI, reposet.TastingPlan, reposet.GenerationLog, now)

	registry := steprun.NewRegistry()
	if err := registry.Register(plan_warmup.New(log, policies, generator)); err != nil {
		return Services{}, fmt.Errorf("register warmup pipeline: %w", err)
	}
	engine := steprun.NewEngine(log, reposet.WorkflowRun, reposet.WorkflowStepEvent, reposet.Tx, registry, steprun.LoadPolicy(), now)

	out := Services{
		Policies:      policies,
		PlanCache:     cache,
		RateLimiter:   limiter,
		PlanGenerator: generator,
		Identity:      services.NewIdentityService(log, cfg.JWTSecretKey, now),
		Engine:        engine,
	}

	var dispatcher services.WarmupDispatcher
	if clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, clients.Temporal, clients.TemporalCfg, engine)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.TemporalWorker = runner
		dispatcher = warmuprun.NewDispatcher(clients.Temporal, clients.TemporalCfg.TaskQueue)
	} else {
		out.LocalWorker = worker.New(log, reposet.WorkflowRun, engine, services.WarmupKind, cfg.WorkerInterval)
	}
	out.Warmup = services.NewWarmupService(log, engine, dispatcher)
	return out, nil
}
