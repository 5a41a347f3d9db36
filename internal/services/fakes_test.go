package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/vinoplan-backend/internal/domain"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/ai"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/schema"
	"github.com/yungbote/vinoplan-backend/internal/platform/dbctx"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t.UTC()} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t.UTC()
	c.mu.Unlock()
}

type fakePlanRepo struct {
	mu    sync.Mutex
	plans map[uuid.UUID]*types.TastingPlan
	err   error
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: map[uuid.UUID]*types.TastingPlan{}}
}

func (r *fakePlanRepo) Insert(_ dbctx.Context, plan *types.TastingPlan) (*types.TastingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	for i := range plan.Wines {
		if plan.Wines[i].ID == uuid.Nil {
			plan.Wines[i].ID = uuid.New()
		}
		plan.Wines[i].PlanID = plan.ID
	}
	if r.err != nil {
		return nil, r.err
	}
	cp := *plan
	r.plans[plan.ID] = &cp
	return plan, nil
}

func (r *fakePlanRepo) FindByID(_ dbctx.Context, id uuid.UUID) (*types.TastingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plans[id], nil
}

func (r *fakePlanRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plans)
}

type fakeCacheRepo struct {
	mu      sync.Mutex
	entries []*types.PlanCacheEntry
	err     error
}

func (r *fakeCacheRepo) Insert(_ dbctx.Context, e *types.PlanCacheEntry) (*types.PlanCacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	r.entries = append(r.entries, &cp)
	return e, nil
}

func (r *fakeCacheRepo) FindFresh(_ dbctx.Context, fp string, now time.Time) (*types.PlanCacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var fresh []*types.PlanCacheEntry
	for _, e := range r.entries {
		if e.Fingerprint == fp && e.FreshAt(now) {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}
	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].CreatedAt.After(fresh[j].CreatedAt) })
	return fresh[0], nil
}

func (r *fakeCacheRepo) count(fp string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Fingerprint == fp {
			n++
		}
	}
	return n
}

type fakeLogRepo struct {
	mu   sync.Mutex
	rows []types.GenerationLog
	err  error
}

func (r *fakeLogRepo) Insert(_ dbctx.Context, userID, planID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, types.GenerationLog{ID: uuid.New(), UserID: userID, PlanID: planID, CreatedAt: at.UTC()})
	return nil
}

func (r *fakeLogRepo) CountSince(_ dbctx.Context, userID uuid.UUID, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.UserID == userID && !row.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeLogRepo) seed(userID uuid.UUID, at time.Time, n int) {
	for i := 0; i < n; i++ {
		_ = r.Insert(dbctx.Context{}, userID, uuid.New(), at)
	}
}

func (r *fakeLogRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeHot struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func newFakeHot() *fakeHot { return &fakeHot{values: map[string]string{}} }

func (h *fakeHot) Get(_ context.Context, fp string) (string, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.getErr != nil {
		return "", false, h.getErr
	}
	v, ok := h.values[fp]
	return v, ok, nil
}

func (h *fakeHot) Set(_ context.Context, fp, value string, _ *time.Time, _ time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values[fp] = value
	return nil
}

// countingGenerator wraps the mock generator and counts calls. gate, when set, blocks
// every call until it is closed.
type countingGenerator struct {
	mu    sync.Mutex
	calls int
	err   error
	gate  chan struct{}
	inner ai.Generator
}

func newCountingGenerator() *countingGenerator {
	return &countingGenerator{inner: ai.NewMockGenerator()}
}

func (g *countingGenerator) Generate(ctx context.Context, req tasting.GenerationRequest) (*schema.Plan, error) {
	g.mu.Lock()
	g.calls++
	err := g.err
	gate := g.gate
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return g.inner.Generate(ctx, req)
}

func (g *countingGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

var errBoom = errors.New("boom")
