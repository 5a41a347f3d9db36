package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/vinoplan-backend/internal/data/repos"
	types "github.com/yungbote/vinoplan-backend/internal/domain"
	"github.com/yungbote/vinoplan-backend/internal/domain/plans"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/ai"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/fingerprint"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/policy"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/schema"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/validate"
	"github.com/yungbote/vinoplan-backend/internal/observability"
	"github.com/yungbote/vinoplan-backend/internal/platform/dbctx"
	"github.com/yungbote/vinoplan-backend/internal/platform/jsoncol"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

type GenerateResult struct {
	PlanID      uuid.UUID          `json:"planId"`
	Cached      bool               `json:"cached"`
	Persisted   bool               `json:"persisted"`
	Fingerprint string             `json:"fingerprint"`
	Plan        *types.TastingPlan `json:"plan,omitempty"`
	Remaining   *int               `json:"remaining"`
}

type WarmStatus string

const (
	WarmAlreadyCached WarmStatus = "already_cached"
	WarmGenerated     WarmStatus = "generated"
)

type WarmOutcome struct {
	Status      WarmStatus `json:"status"`
	PlanID      uuid.UUID  `json:"planId"`
	Fingerprint string     `json:"fingerprint"`
}

type PlanGenerator interface {
	// Generate runs validate, fingerprint, quota, cache, AI, persist, log, cache for one caller.
	// userID is uuid.Nil for anonymous callers.
	Generate(ctx context.Context, userID uuid.UUID, tier tasting.Tier, req tasting.GenerationRequest) (*GenerateResult, error)
	// Warm fills the cache for one canonical anonymous request with a never-expiring entry.
	// Unlike Generate, a persistence failure is returned as an error so the caller can retry.
	Warm(ctx context.Context, req tasting.GenerationRequest) (*WarmOutcome, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*types.TastingPlan, error)
	Quota(ctx context.Context, userID uuid.UUID, tier tasting.Tier) (QuotaDecision, error)
}

type planGenerator struct {
	log       *logger.Logger
	policies  *policy.Table
	validator *validate.Validator
	limiter   RateLimiter
	cache     PlanCache
	ai        ai.Generator
	plans     repos.TastingPlanRepo
	genLogs   repos.GenerationLogRepo
	now       func() time.Time
}

func NewPlanGenerator(
	baseLog *logger.Logger,
	policies *policy.Table,
	limiter RateLimiter,
	cache PlanCache,
	generator ai.Generator,
	planRepo repos.TastingPlanRepo,
	genLogs repos.GenerationLogRepo,
	now func() time.Time,
) PlanGenerator {
	if now == nil {
		now = time.Now
	}
	return &planGenerator{
		log:       baseLog.With("service", "PlanGenerator"),
		policies:  policies,
		validator: validate.New(policies),
		limiter:   limiter,
		cache:     cache,
		ai:        generator,
		plans:     planRepo,
		genLogs:   genLogs,
		now:       now,
	}
}

func (g *planGenerator) Generate(ctx context.Context, userID uuid.UUID, tier tasting.Tier, req tasting.GenerationRequest) (*GenerateResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "plans.generate")
	defer span.End()
	span.SetAttributes(attribute.String("tier", string(tier)))
	m := observability.Current()

	req.Tier = tier
	p := g.policies.For(tier)

	if err := g.validator.Validate(req, tier); err != nil {
		m.IncGeneration(string(tier), "rejected")
		return nil, err
	}

	norm := fingerprint.Normalize(req)
	fp := fingerprint.Compute(req)
	span.SetAttributes(attribute.String("fingerprint", fp))

	var remaining *int
	if tier != tasting.TierAnonymous {
		d, err := g.limiter.CanGenerate(ctx, userID, tier)
		if err != nil {
			return nil, err
		}
		if !d.Allowed {
			m.IncGeneration(string(tier), "quota")
			return nil, tasting.QuotaExceeded(d.Reason)
		}
		remaining = d.Remaining
	}

	// Two callers with the same fingerprint can both miss here, both call the AI and both
	// append a cache entry. That duplicate is accepted: cache writes are plain inserts, the
	// extra plan row is harmless, and lookups return the newest fresh entry. Do not add a
	// lock around lookup+store; it would serialize every cold request for one fingerprint.
	if planID, ok, err := g.cache.Lookup(ctx, fp); err != nil {
		return nil, err
	} else if ok {
		m.IncGeneration(string(tier), "cached")
		return &GenerateResult{PlanID: planID, Cached: true, Persisted: true, Fingerprint: fp, Remaining: remaining}, nil
	}

	generated, err := g.ai.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		m.IncGeneration(string(tier), "failed")
		g.log.Error("plan generation failed", "error", err, "tier", tier, "fingerprint", fp)
		return nil, err
	}

	var owner *uuid.UUID
	if userID != uuid.Nil {
		owner = &userID
	}
	plan := toTastingPlan(generated, req, fp, plans.SourceInteractive, owner)

	if _, err := g.plans.Insert(dbctx.Context{Ctx: ctx}, plan); err != nil {
		// The caller still gets the plan, but nothing may claim it is retrievable by id.
		m.IncGeneration(string(tier), "degraded")
		g.log.Error("plan persistence failed; returning unsaved plan",
			"error", errors.Join(tasting.ErrPersistenceDegraded, err),
			"tier", tier,
			"fingerprint", fp,
		)
		plan.ID = uuid.Nil
		for i := range plan.Wines {
			plan.Wines[i].ID = uuid.Nil
			plan.Wines[i].PlanID = uuid.Nil
		}
		return &GenerateResult{Persisted: false, Fingerprint: fp, Plan: plan, Remaining: remaining}, nil
	}

	if tier != tasting.TierAnonymous && userID != uuid.Nil {
		if err := g.genLogs.Insert(dbctx.Context{Ctx: ctx}, userID, plan.ID, g.now()); err != nil {
			g.log.Error("generation log write failed", "error", err, "user_id", userID, "plan_id", plan.ID)
		} else if remaining != nil && *remaining > 0 {
			left := *remaining - 1
			remaining = &left
		}
	}
	if _, err := g.cache.Store(ctx, CacheWrite{
		Fingerprint: fp,
		PlanID:      plan.ID,
		Tier:        string(tier),
		Normalized:  norm.JSON(),
		TTLHours:    p.CacheTTLHours,
	}); err != nil {
		g.log.Warn("cache write failed", "error", err, "fingerprint", fp, "plan_id", plan.ID)
	}

	m.IncGeneration(string(tier), "generated")
	return &GenerateResult{PlanID: plan.ID, Persisted: true, Fingerprint: fp, Plan: plan, Remaining: remaining}, nil
}

func (g *planGenerator) Warm(ctx context.Context, req tasting.GenerationRequest) (*WarmOutcome, error) {
	ctx, span := observability.Tracer().Start(ctx, "plans.warm")
	defer span.End()

	req.Tier = tasting.TierAnonymous
	if err := g.validator.Validate(req, tasting.TierAnonymous); err != nil {
		return nil, fmt.Errorf("warm request is not a legal anonymous request: %w", err)
	}
	fp := fingerprint.Compute(req)

	if planID, ok, err := g.cache.Lookup(ctx, fp); err != nil {
		return nil, err
	} else if ok {
		return &WarmOutcome{Status: WarmAlreadyCached, PlanID: planID, Fingerprint: fp}, nil
	}

	generated, err := g.ai.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	plan := toTastingPlan(generated, req, fp, plans.SourceWarmup, nil)
	if _, err := g.plans.Insert(dbctx.Context{Ctx: ctx}, plan); err != nil {
		return nil, fmt.Errorf("persist warm plan: %w", errors.Join(tasting.ErrPersistenceDegraded, err))
	}
	if _, err := g.cache.Store(ctx, CacheWrite{
		Fingerprint: fp,
		PlanID:      plan.ID,
		Tier:        string(tasting.TierAnonymous),
		Normalized:  fingerprint.Normalize(req).JSON(),
		TTLHours:    nil,
	}); err != nil {
		return nil, err
	}
	return &WarmOutcome{Status: WarmGenerated, PlanID: plan.ID, Fingerprint: fp}, nil
}

func (g *planGenerator) GetPlan(ctx context.Context, id uuid.UUID) (*types.TastingPlan, error) {
	return g.plans.FindByID(dbctx.Context{Ctx: ctx}, id)
}

func (g *planGenerator) Quota(ctx context.Context, userID uuid.UUID, tier tasting.Tier) (QuotaDecision, error) {
	return g.limiter.CanGenerate(ctx, userID, tier)
}

func jsonOf(v any) jsoncol.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return jsoncol.JSON([]byte("null"))
	}
	return jsoncol.JSON(raw)
}

func toTastingPlan(p *schema.Plan, req tasting.GenerationRequest, fp, source string, owner *uuid.UUID) *types.TastingPlan {
	out := &types.TastingPlan{
		UserID:                owner,
		Tier:                  string(req.Tier),
		Source:                source,
		Fingerprint:           fp,
		Occasion:              string(req.Occasion),
		FoodPairing:           req.FoodPairing,
		Currency:              req.CurrencyOrDefault(),
		Title:                 p.Title,
		Description:           p.Description,
		TastingTips:           jsonOf(p.TastingTips),
		TotalEstimatedCostMin: p.TotalEstimatedCostMin,
		TotalEstimatedCostMax: p.TotalEstimatedCostMax,
		Wines:                 make([]types.PlanWine, 0, len(p.Wines)),
	}
	for _, w := range p.Wines {
		out.Wines = append(out.Wines, types.PlanWine{
			TastingOrder:      w.TastingOrder,
			Varietal:          w.Varietal,
			Region:            w.Region,
			WineType:          w.WineType,
			Description:       w.Description,
			PairingRationale:  w.PairingRationale,
			FlavorNotes:       jsonOf(w.FlavorNotes),
			Acidity:           w.FlavorProfile.Acidity,
			Tannin:            w.FlavorProfile.Tannin,
			Sweetness:         w.FlavorProfile.Sweetness,
			Alcohol:           w.FlavorProfile.Alcohol,
			Body:              w.FlavorProfile.Body,
			EstimatedPriceMin: w.EstimatedPriceMin,
			EstimatedPriceMax: w.EstimatedPriceMax,
		})
	}
	return out
}
