package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/policy"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

func TestRateLimiterFreeTier(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	clock := newFakeClock(now)
	logs := &fakeLogRepo{}
	rl := NewRateLimiter(logger.Nop(), logs, policy.Defaults(), clock.Now)

	user := uuid.New()
	logs.seed(user, now.Add(-time.Hour), 9)
	d, err := rl.CanGenerate(ctx, user, tasting.TierFree)
	if err != nil {
		t.Fatalf("CanGenerate: %v", err)
	}
	if !d.Allowed || d.Remaining == nil || *d.Remaining != 1 {
		t.Fatalf("9 used: want allowed remaining=1, got %+v", d)
	}

	logs.seed(user, now.Add(-time.Minute), 1)
	d, err = rl.CanGenerate(ctx, user, tasting.TierFree)
	if err != nil {
		t.Fatalf("CanGenerate: %v", err)
	}
	if d.Allowed || d.Remaining == nil || *d.Remaining != 0 {
		t.Fatalf("10 used: want denied remaining=0, got %+v", d)
	}
	if d.Reason != QuotaReason(10) {
		t.Fatalf("reason: got %q", d.Reason)
	}
}

func TestRateLimiterWindowStartsAtUTCMidnight(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC)
	logs := &fakeLogRepo{}
	rl := NewRateLimiter(logger.Nop(), logs, policy.Defaults(), newFakeClock(now).Now)

	user := uuid.New()
	logs.seed(user, time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC), 10)
	logs.seed(user, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 2)

	n, err := rl.DailyCount(ctx, user)
	if err != nil {
		t.Fatalf("DailyCount: %v", err)
	}
	if n != 2 {
		t.Fatalf("DailyCount: want=2 got=%d", n)
	}
}

func TestRateLimiterUnlimitedTiers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	logs := &fakeLogRepo{}
	rl := NewRateLimiter(logger.Nop(), logs, policy.Defaults(), newFakeClock(now).Now)

	user := uuid.New()
	logs.seed(user, now, 1000)
	for _, tier := range []tasting.Tier{tasting.TierPaid, tasting.TierAnonymous} {
		d, err := rl.CanGenerate(ctx, user, tier)
		if err != nil {
			t.Fatalf("%s: %v", tier, err)
		}
		if !d.Allowed || d.Remaining != nil || d.Limit != nil {
			t.Fatalf("%s: want unlimited, got %+v", tier, d)
		}
	}
}

func TestStartOfUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	in := time.Date(2026, 3, 1, 20, 0, 0, 0, loc) // 04:00 UTC on the 2nd
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := StartOfUTCDay(in); !got.Equal(want) {
		t.Fatalf("StartOfUTCDay: want=%s got=%s", want, got)
	}
}
