package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/fingerprint"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/policy"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/validate"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

type generatorFixture struct {
	clock   *fakeClock
	plans   *fakePlanRepo
	entries *fakeCacheRepo
	logs    *fakeLogRepo
	ai      *countingGenerator
	gen     PlanGenerator
}

func newGeneratorFixture(t *testing.T) *generatorFixture {
	t.Helper()
	f := &generatorFixture{
		clock:   newFakeClock(time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)),
		plans:   newFakePlanRepo(),
		entries: &fakeCacheRepo{},
		logs:    &fakeLogRepo{},
		ai:      newCountingGenerator(),
	}
	table := policy.Defaults()
	log := logger.Nop()
	cache := NewPlanCache(log, f.entries, nil, f.clock.Now)
	limiter := NewRateLimiter(log, f.logs, table, f.clock.Now)
	f.gen = NewPlanGenerator(log, table, limiter, cache, f.ai, f.plans, f.logs, f.clock.Now)
	return f
}

func anonymousRequest() tasting.GenerationRequest {
	return tasting.GenerationRequest{
		Occasion:    tasting.OccasionDinnerParty,
		FoodPairing: "Pasta & Italian",
		BudgetMin:   20,
		BudgetMax:   40,
		WineCount:   3,
	}
}

func freeRequest() tasting.GenerationRequest {
	return tasting.GenerationRequest{
		Occasion:    tasting.OccasionDateNight,
		FoodPairing: "grilled salmon with dill",
		BudgetMin:   40,
		BudgetMax:   75,
		Currency:    "usd",
		WineCount:   4,
	}
}

func TestGenerateAnonymousEndToEnd(t *testing.T) {
	f := newGeneratorFixture(t)
	ctx := context.Background()

	res, err := f.gen.Generate(ctx, uuid.Nil, tasting.TierAnonymous, anonymousRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Cached || !res.Persisted || res.PlanID == uuid.Nil {
		t.Fatalf("first call: got %+v", res)
	}
	if res.Remaining != nil {
		t.Fatalf("anonymous remaining: want nil, got %d", *res.Remaining)
	}
	if len(res.Plan.Wines) != 3 {
		t.Fatalf("wines: want=3 got=%d", len(res.Plan.Wines))
	}
	for i, w := range res.Plan.Wines {
		if w.TastingOrder != i+1 {
			t.Fatalf("wine %d tasting order: got %d", i, w.TastingOrder)
		}
	}
	if f.logs.len() != 0 {
		t.Fatalf("anonymous generation must not be logged")
	}
	if n := f.entries.count(res.Fingerprint); n != 1 {
		t.Fatalf("cache entries: want=1 got=%d", n)
	}
	if f.entries.entries[0].ExpiresAt != nil {
		t.Fatalf("anonymous cache entry must never expire")
	}

	again, err := f.gen.Generate(ctx, uuid.Nil, tasting.TierAnonymous, anonymousRequest())
	if err != nil {
		t.Fatalf("Generate again: %v", err)
	}
	if !again.Cached || again.PlanID != res.PlanID {
		t.Fatalf("second call: want cached %s, got %+v", res.PlanID, again)
	}
	if f.ai.Calls() != 1 {
		t.Fatalf("ai calls: want=1 got=%d", f.ai.Calls())
	}

	stored, err := f.gen.GetPlan(ctx, res.PlanID)
	if err != nil || stored == nil {
		t.Fatalf("GetPlan: plan=%v err=%v", stored, err)
	}
}

func TestGenerateCacheHitIgnoresCosmeticDifferences(t *testing.T) {
	f := newGeneratorFixture(t)
	ctx := context.Background()
	user := uuid.New()

	first, err := f.gen.Generate(ctx, user, tasting.TierFree, freeRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	req := freeRequest()
	req.FoodPairing = "  Grilled Salmon with DILL "
	req.Currency = "USD"
	second, err := f.gen.Generate(ctx, user, tasting.TierFree, req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !second.Cached || second.PlanID != first.PlanID {
		t.Fatalf("want cache hit on %s, got %+v", first.PlanID, second)
	}
	if f.ai.Calls() != 1 {
		t.Fatalf("ai calls: want=1 got=%d", f.ai.Calls())
	}
	// Only the generation that reached the model counts against the quota.
	if f.logs.len() != 1 {
		t.Fatalf("generation logs: want=1 got=%d", f.logs.len())
	}
}

func TestGenerateFreeTierTTL(t *testing.T) {
	f := newGeneratorFixture(t)
	ctx := context.Background()
	user := uuid.New()
	start := f.clock.Now()

	first, err := f.gen.Generate(ctx, user, tasting.TierFree, freeRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	f.clock.Set(start.Add(24*time.Hour - time.Second))
	hit, err := f.gen.Generate(ctx, user, tasting.TierFree, freeRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !hit.Cached || hit.PlanID != first.PlanID {
		t.Fatalf("before expiry: want hit, got %+v", hit)
	}

	f.clock.Set(start.Add(24 * time.Hour))
	miss, err := f.gen.Generate(ctx, user, tasting.TierFree, freeRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if miss.Cached || miss.PlanID == first.PlanID {
		t.Fatalf("at expiry: want fresh generation, got %+v", miss)
	}
}

func TestGenerateQuota(t *testing.T) {
	f := newGeneratorFixture(t)
	ctx := context.Background()
	user := uuid.New()

	f.logs.seed(user, f.clock.Now().Add(-time.Hour), 9)
	res, err := f.gen.Generate(ctx, user, tasting.TierFree, freeRequest())
	if err != nil {
		t.Fatalf("Generate at 9: %v", err)
	}
	if res.Remaining == nil || *res.Remaining != 0 {
		t.Fatalf("remaining after 10th: want 0, got %v", res.Remaining)
	}

	calls := f.ai.Calls()
	req := freeRequest()
	req.Occasion = tasting.OccasionCelebration
	_, err = f.gen.Generate(ctx, user, tasting.TierFree, req)
	if !errors.Is(err, tasting.ErrQuotaExceeded) {
		t.Fatalf("11th: want quota error, got %v", err)
	}
	if tasting.UserMessage(err) != QuotaReason(10) {
		t.Fatalf("message: got %q", tasting.UserMessage(err))
	}
	if f.ai.Calls() != calls {
		t.Fatalf("quota denial must not reach the model")
	}

	paid := uuid.New()
	f.logs.seed(paid, f.clock.Now(), 1000)
	preq := freeRequest()
	preq.SpecialRequest = "natural wines only"
	if _, err := f.gen.Generate(ctx, paid, tasting.TierPaid, preq); err != nil {
		t.Fatalf("paid after 1000: %v", err)
	}
}

func TestGenerateRejectsBeforeAnyWork(t *testing.T) {
	f := newGeneratorFixture(t)
	req := anonymousRequest()
	req.WineCount = 4

	_, err := f.gen.Generate(context.Background(), uuid.Nil, tasting.TierAnonymous, req)
	if !errors.Is(err, tasting.ErrValidationRejected) {
		t.Fatalf("want rejection, got %v", err)
	}
	if tasting.UserMessage(err) != validate.ReasonAnonWineCount {
		t.Fatalf("message: got %q", tasting.UserMessage(err))
	}
	if f.ai.Calls() != 0 || f.plans.count() != 0 || len(f.entries.entries) != 0 {
		t.Fatalf("rejected request did work: ai=%d plans=%d", f.ai.Calls(), f.plans.count())
	}
}

func TestGenerateUpstreamFailureWritesNothing(t *testing.T) {
	f := newGeneratorFixture(t)
	f.ai.err = tasting.UpstreamFailure("ai schema", errBoom)
	user := uuid.New()

	_, err := f.gen.Generate(context.Background(), user, tasting.TierFree, freeRequest())
	if !errors.Is(err, tasting.ErrUpstreamGenerationFailed) {
		t.Fatalf("want upstream failure, got %v", err)
	}
	if tasting.UserMessage(err) != tasting.GenericFailureMessage {
		t.Fatalf("message: got %q", tasting.UserMessage(err))
	}
	if f.plans.count() != 0 || len(f.entries.entries) != 0 || f.logs.len() != 0 {
		t.Fatalf("failure left rows behind")
	}
}

func TestGenerateDegradedPersistence(t *testing.T) {
	f := newGeneratorFixture(t)
	f.plans.err = errBoom
	user := uuid.New()

	res, err := f.gen.Generate(context.Background(), user, tasting.TierFree, freeRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Persisted || res.PlanID != uuid.Nil || res.Plan == nil || res.Plan.ID != uuid.Nil {
		t.Fatalf("degraded: got %+v", res)
	}
	if len(res.Plan.Wines) != 4 {
		t.Fatalf("degraded plan wines: want=4 got=%d", len(res.Plan.Wines))
	}
	if len(f.entries.entries) != 0 || f.logs.len() != 0 {
		t.Fatalf("degraded plan must not be cached or logged")
	}
}

func TestGenerateConcurrentSameFingerprint(t *testing.T) {
	f := newGeneratorFixture(t)
	f.ai.gate = make(chan struct{})

	const n = 2
	var wg sync.WaitGroup
	results := make([]*GenerateResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.gen.Generate(context.Background(), uuid.Nil, tasting.TierAnonymous, anonymousRequest())
		}(i)
	}
	deadline := time.Now().Add(5 * time.Second)
	for f.ai.Calls() < n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(f.ai.gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].Cached {
			t.Fatalf("caller %d: both callers missed, want uncached", i)
		}
	}
	fp := fingerprint.Compute(anonymousRequest())
	if got := f.entries.count(fp); got != n {
		t.Fatalf("cache entries: want=%d got=%d", n, got)
	}

	after, err := f.gen.Generate(context.Background(), uuid.Nil, tasting.TierAnonymous, anonymousRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !after.Cached {
		t.Fatalf("third call: want cached")
	}
	if after.PlanID != results[0].PlanID && after.PlanID != results[1].PlanID {
		t.Fatalf("third call served unknown plan %s", after.PlanID)
	}
}

func TestWarm(t *testing.T) {
	f := newGeneratorFixture(t)
	ctx := context.Background()

	out, err := f.gen.Warm(ctx, anonymousRequest())
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if out.Status != WarmGenerated || out.PlanID == uuid.Nil {
		t.Fatalf("first warm: got %+v", out)
	}
	again, err := f.gen.Warm(ctx, anonymousRequest())
	if err != nil {
		t.Fatalf("Warm again: %v", err)
	}
	if again.Status != WarmAlreadyCached || again.PlanID != out.PlanID {
		t.Fatalf("second warm: got %+v", again)
	}

	// A warmed plan serves the interactive anonymous path.
	res, err := f.gen.Generate(ctx, uuid.Nil, tasting.TierAnonymous, anonymousRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Cached || res.PlanID != out.PlanID {
		t.Fatalf("interactive after warm: got %+v", res)
	}

	f.plans.err = errBoom
	req := anonymousRequest()
	req.Occasion = tasting.OccasionCelebration
	if _, err := f.gen.Warm(ctx, req); !errors.Is(err, tasting.ErrPersistenceDegraded) {
		t.Fatalf("warm persist failure: want degraded error, got %v", err)
	}
}
