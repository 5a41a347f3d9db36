package redis

import (
	"testing"
	"time"
)

func TestKeyTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	max := 48 * time.Hour

	if got := KeyTTL(nil, now, max); got != max {
		t.Fatalf("never-expiring: got %v want %v", got, max)
	}
	soon := now.Add(90 * time.Minute)
	if got := KeyTTL(&soon, now, max); got != 90*time.Minute {
		t.Fatalf("short ttl: got %v", got)
	}
	far := now.Add(30 * 24 * time.Hour)
	if got := KeyTTL(&far, now, max); got != max {
		t.Fatalf("capped ttl: got %v", got)
	}
	if got := KeyTTL(&now, now, max); got > 0 {
		t.Fatalf("expired entry should not be stored, ttl=%v", got)
	}
}

func TestPlanCacheKey(t *testing.T) {
	if got := PlanCacheKey("abc"); got != "plancache:abc" {
		t.Fatalf("key=%q", got)
	}
}
