package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/data/repos"
	types "github.com/yungbote/vinoplan-backend/internal/domain"
	"github.com/yungbote/vinoplan-backend/internal/observability"
	"github.com/yungbote/vinoplan-backend/internal/platform/dbctx"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

// HotCache is an optional fast layer in front of the database cache. Implementations
// store opaque values; PlanCache owns the encoding and the freshness check.
type HotCache interface {
	Get(ctx context.Context, fingerprint string) (string, bool, error)
	Set(ctx context.Context, fingerprint, value string, expiresAt *time.Time, now time.Time) error
}

type CacheWrite struct {
	Fingerprint string
	PlanID      uuid.UUID
	Tier        string
	Normalized  []byte
	// TTLHours nil means the entry never expires.
	TTLHours *int
}

type PlanCache interface {
	// Lookup returns the plan id of the newest fresh entry for fingerprint.
	Lookup(ctx context.Context, fingerprint string) (uuid.UUID, bool, error)
	// Store appends an entry without checking for an existing one.
	Store(ctx context.Context, w CacheWrite) (*types.PlanCacheEntry, error)
}

type planCache struct {
	log     *logger.Logger
	entries repos.PlanCacheEntryRepo
	hot     HotCache
	now     func() time.Time
}

// NewPlanCache builds the cache. hot may be nil; now defaults to time.Now.
func NewPlanCache(baseLog *logger.Logger, entries repos.PlanCacheEntryRepo, hot HotCache, now func() time.Time) PlanCache {
	if now == nil {
		now = time.Now
	}
	return &planCache{
		log:     baseLog.With("service", "PlanCache"),
		entries: entries,
		hot:     hot,
		now:     now,
	}
}

type hotValue struct {
	PlanID    uuid.UUID  `json:"planId"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (c *planCache) Lookup(ctx context.Context, fingerprint string) (uuid.UUID, bool, error) {
	now := c.now().UTC()

	if c.hot != nil {
		raw, ok, err := c.hot.Get(ctx, fingerprint)
		switch {
		case err != nil:
			c.log.Warn("hot cache get failed", "error", err, "fingerprint", fingerprint)
		case ok:
			var v hotValue
			if jErr := json.Unmarshal([]byte(raw), &v); jErr == nil && v.PlanID != uuid.Nil &&
				(v.ExpiresAt == nil || v.ExpiresAt.After(now)) {
				observability.Current().IncCacheLookup("redis", "hit")
				return v.PlanID, true, nil
			}
		}
		observability.Current().IncCacheLookup("redis", "miss")
	}

	entry, err := c.entries.FindFresh(dbctx.Context{Ctx: ctx}, fingerprint, now)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("plan cache lookup: %w", err)
	}
	if entry == nil {
		observability.Current().IncCacheLookup("db", "miss")
		return uuid.Nil, false, nil
	}
	observability.Current().IncCacheLookup("db", "hit")
	c.setHot(ctx, entry, now)
	return entry.PlanID, true, nil
}

func (c *planCache) Store(ctx context.Context, w CacheWrite) (*types.PlanCacheEntry, error) {
	now := c.now().UTC()
	var expiresAt *time.Time
	if w.TTLHours != nil {
		exp := now.Add(time.Duration(*w.TTLHours) * time.Hour)
		expiresAt = &exp
	}
	entry, err := c.entries.Insert(dbctx.Context{Ctx: ctx}, &types.PlanCacheEntry{
		Fingerprint:       w.Fingerprint,
		PlanID:            w.PlanID,
		Tier:              w.Tier,
		NormalizedRequest: w.Normalized,
		CreatedAt:         now,
		ExpiresAt:         expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("plan cache store: %w", err)
	}
	c.setHot(ctx, entry, now)
	return entry, nil
}

func (c *planCache) setHot(ctx context.Context, entry *types.PlanCacheEntry, now time.Time) {
	if c.hot == nil || entry == nil {
		return
	}
	raw, err := json.Marshal(hotValue{PlanID: entry.PlanID, ExpiresAt: entry.ExpiresAt})
	if err != nil {
		return
	}
	if err := c.hot.Set(ctx, entry.Fingerprint, string(raw), entry.ExpiresAt, now); err != nil {
		c.log.Warn("hot cache set failed", "error", err, "fingerprint", entry.Fingerprint)
	}
}
