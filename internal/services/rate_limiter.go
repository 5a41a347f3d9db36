package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/data/repos"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/policy"
	"github.com/yungbote/vinoplan-backend/internal/platform/dbctx"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

// QuotaDecision is the limiter's answer. Remaining and Limit are nil when unlimited.
type QuotaDecision struct {
	Allowed   bool   `json:"allowed"`
	Remaining *int   `json:"remaining"`
	Limit     *int   `json:"limit"`
	Reason    string `json:"reason,omitempty"`
}

type RateLimiter interface {
	// DailyCount counts the user's generations since the start of the current UTC day.
	DailyCount(ctx context.Context, userID uuid.UUID) (int, error)
	CanGenerate(ctx context.Context, userID uuid.UUID, tier tasting.Tier) (QuotaDecision, error)
}

type rateLimiter struct {
	log      *logger.Logger
	logs     repos.GenerationLogRepo
	policies *policy.Table
	now      func() time.Time
}

func NewRateLimiter(baseLog *logger.Logger, logs repos.GenerationLogRepo, policies *policy.Table, now func() time.Time) RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &rateLimiter{
		log:      baseLog.With("service", "RateLimiter"),
		logs:     logs,
		policies: policies,
		now:      now,
	}
}

// StartOfUTCDay is the quota window start. The boundary is UTC midnight for every caller,
// whatever their local timezone.
func StartOfUTCDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func QuotaReason(limit int) string {
	return fmt.Sprintf("You've reached your daily limit of %d tasting plans. Try again tomorrow or upgrade to a paid plan for unlimited plans.", limit)
}

func (l *rateLimiter) DailyCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return l.logs.CountSince(dbctx.Context{Ctx: ctx}, userID, StartOfUTCDay(l.now()))
}

func (l *rateLimiter) CanGenerate(ctx context.Context, userID uuid.UUID, tier tasting.Tier) (QuotaDecision, error) {
	if tier == tasting.TierAnonymous {
		return QuotaDecision{Allowed: true}, nil
	}
	p := l.policies.For(tier)
	if p.DailyGenerationLimit == nil {
		return QuotaDecision{Allowed: true}, nil
	}
	limit := *p.DailyGenerationLimit
	used, err := l.DailyCount(ctx, userID)
	if err != nil {
		return QuotaDecision{}, fmt.Errorf("daily count: %w", err)
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	d := QuotaDecision{Allowed: remaining > 0, Remaining: &remaining, Limit: &limit}
	if !d.Allowed {
		d.Reason = QuotaReason(limit)
	}
	return d, nil
}
