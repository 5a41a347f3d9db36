package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/vinoplan-backend/internal/domain"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
	"github.com/yungbote/vinoplan-backend/internal/services"
)

type stubGenerator struct {
	gotUser uuid.UUID
	gotTier tasting.Tier
	gotReq  tasting.GenerationRequest
	result  *services.GenerateResult
	err     error
	plans   map[uuid.UUID]*types.TastingPlan
	quota   services.QuotaDecision
}

func (s *stubGenerator) Generate(_ context.Context, userID uuid.UUID, tier tasting.Tier, req tasting.GenerationRequest) (*services.GenerateResult, error) {
	s.gotUser, s.gotTier, s.gotReq = userID, tier, req
	return s.result, s.err
}

func (s *stubGenerator) Warm(context.Context, tasting.GenerationRequest) (*services.WarmOutcome, error) {
	return nil, errors.New("not used")
}

func (s *stubGenerator) GetPlan(_ context.Context, id uuid.UUID) (*types.TastingPlan, error) {
	return s.plans[id], nil
}

func (s *stubGenerator) Quota(context.Context, uuid.UUID, tasting.Tier) (services.QuotaDecision, error) {
	return s.quota, nil
}

type stubWarmup struct {
	trigger *services.WarmupTrigger
	status  map[uuid.UUID]*services.WarmupStatus
}

func (s *stubWarmup) Trigger(context.Context) (*services.WarmupTrigger, error) { return s.trigger, nil }

func (s *stubWarmup) Status(_ context.Context, id uuid.UUID) (*services.WarmupStatus, error) {
	st, ok := s.status[id]
	if !ok {
		return nil, services.ErrWarmupNotFound
	}
	return st, nil
}

func withCaller(caller ctxutil.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxutil.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

func planRouter(gen *stubGenerator, caller ctxutil.Caller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPlanHandler(logger.Nop(), gen)
	r := gin.New()
	r.Use(withCaller(caller))
	r.POST("/api/plans/generate", h.Generate)
	r.GET("/api/plans/quota", h.Quota)
	r.GET("/api/plans/:id", h.Get)
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGenerateUsesCallerTierNotBody(t *testing.T) {
	planID := uuid.New()
	gen := &stubGenerator{result: &services.GenerateResult{PlanID: planID, Plan: &types.TastingPlan{ID: planID, Title: "Tuscan Table"}}}
	uid := uuid.New()
	r := planRouter(gen, ctxutil.Caller{UserID: uid, Tier: "paid"})

	rec := do(r, http.MethodPost, "/api/plans/generate", map[string]any{
		"occasion": "dinner_party", "foodPairing": "Pasta & Italian", "budgetMin": 20, "budgetMax": 40, "wineCount": 3, "tier": "anonymous",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if gen.gotUser != uid || gen.gotTier != tasting.TierPaid {
		t.Fatalf("caller not forwarded: user=%s tier=%s", gen.gotUser, gen.gotTier)
	}
	var out services.GenerateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.PlanID != planID || out.Plan == nil || out.Plan.Title != "Tuscan Table" {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestGenerateCacheHitLoadsStoredPlan(t *testing.T) {
	planID := uuid.New()
	gen := &stubGenerator{
		result: &services.GenerateResult{PlanID: planID, Cached: true, Persisted: true},
		plans:  map[uuid.UUID]*types.TastingPlan{planID: {ID: planID, Title: "Cached"}},
	}
	r := planRouter(gen, ctxutil.Caller{Tier: "anonymous"})
	rec := do(r, http.MethodPost, "/api/plans/generate", map[string]any{"occasion": "date_night", "wineCount": 3})
	var out services.GenerateResult
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if !out.Cached || out.Plan == nil || out.Plan.Title != "Cached" {
		t.Fatalf("cache hit body: %s", rec.Body.String())
	}
	if gen.gotTier != tasting.TierAnonymous || gen.gotUser != uuid.Nil {
		t.Fatalf("anonymous caller not forwarded: %s %s", gen.gotUser, gen.gotTier)
	}
}

func TestGenerateErrorStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{tasting.Rejected("Anonymous users can only request 3 wines."), http.StatusBadRequest},
		{tasting.QuotaExceeded("You have used all 10 plans for today."), http.StatusTooManyRequests},
		{tasting.UpstreamFailure("generate", errors.New("timeout")), http.StatusBadGateway},
	}
	for _, tc := range cases {
		r := planRouter(&stubGenerator{err: tc.err}, ctxutil.Caller{Tier: "anonymous"})
		rec := do(r, http.MethodPost, "/api/plans/generate", map[string]any{"occasion": "dinner_party"})
		if rec.Code != tc.want {
			t.Fatalf("%v: status=%d want %d", tc.err, rec.Code, tc.want)
		}
	}

	r := planRouter(&stubGenerator{}, ctxutil.Caller{Tier: "anonymous"})
	if rec := do(r, http.MethodPost, "/api/plans/generate", map[string]any{"foodPairing": "x"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing occasion status=%d", rec.Code)
	}
}

func TestGetPlan(t *testing.T) {
	planID := uuid.New()
	gen := &stubGenerator{plans: map[uuid.UUID]*types.TastingPlan{planID: {ID: planID}}}
	r := planRouter(gen, ctxutil.Caller{Tier: "anonymous"})

	if rec := do(r, http.MethodGet, "/api/plans/"+planID.String(), nil); rec.Code != http.StatusOK {
		t.Fatalf("found status=%d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/api/plans/"+uuid.NewString(), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing status=%d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/api/plans/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", rec.Code)
	}
}

func TestQuota(t *testing.T) {
	remaining, limit := 4, 10
	gen := &stubGenerator{quota: services.QuotaDecision{Allowed: true, Remaining: &remaining, Limit: &limit}}

	rec := do(planRouter(gen, ctxutil.Caller{UserID: uuid.New(), Tier: "free"}), http.MethodGet, "/api/plans/quota", nil)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out["remaining"] != float64(4) || out["limit"] != float64(10) || out["tier"] != "free" {
		t.Fatalf("free quota body: %s", rec.Body.String())
	}

	rec = do(planRouter(gen, ctxutil.Caller{Tier: "anonymous"}), http.MethodGet, "/api/plans/quota", nil)
	out = nil
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out["remaining"] != nil || out["allowed"] != true {
		t.Fatalf("anonymous quota body: %s", rec.Body.String())
	}
}

func TestWarmupHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runID := uuid.New()
	svc := &stubWarmup{
		trigger: &services.WarmupTrigger{InstanceID: runID, Status: "started"},
		status:  map[uuid.UUID]*services.WarmupStatus{runID: {InstanceID: runID, Status: "running", Partial: true}},
	}
	h := NewWarmupHandler(logger.Nop(), svc)
	r := gin.New()
	r.POST("/api/warmup/trigger", h.Trigger)
	r.GET("/api/warmup/status", h.Status)

	if rec := do(r, http.MethodPost, "/api/warmup/trigger", nil); rec.Code != http.StatusAccepted {
		t.Fatalf("trigger status=%d", rec.Code)
	}
	rec := do(r, http.MethodGet, "/api/warmup/status?id="+runID.String(), nil)
	var st services.WarmupStatus
	_ = json.Unmarshal(rec.Body.Bytes(), &st)
	if rec.Code != http.StatusOK || st.InstanceID != runID || !st.Partial {
		t.Fatalf("status body=%s", rec.Body.String())
	}
	if rec := do(r, http.MethodGet, "/api/warmup/status?id="+uuid.NewString(), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id status=%d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/api/warmup/status", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing id status=%d", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", NewHealthHandler(map[string]Pinger{"db": func(context.Context) error { return nil }}).HealthCheck)
	r.GET("/bad", NewHealthHandler(map[string]Pinger{"redis": func(context.Context) error { return errors.New("down") }}).HealthCheck)

	if rec := do(r, http.MethodGet, "/ok", nil); rec.Code != http.StatusOK {
		t.Fatalf("ok status=%d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/bad", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("bad status=%d", rec.Code)
	}
}
