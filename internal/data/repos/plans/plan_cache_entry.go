package plans

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/vinoplan-backend/internal/domain"
	"github.com/yungbote/vinoplan-backend/internal/platform/dbctx"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

type PlanCacheEntryRepo interface {
	// Insert always appends; duplicates for one fingerprint are allowed.
	Insert(dbc dbctx.Context, entry *types.PlanCacheEntry) (*types.PlanCacheEntry, error)
	// FindFresh returns the newest entry with expires_at NULL or after now, or nil.
	FindFresh(dbc dbctx.Context, fingerprint string, now time.Time) (*types.PlanCacheEntry, error)
}

type planCacheEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanCacheEntryRepo(db *gorm.DB, baseLog *logger.Logger) PlanCacheEntryRepo {
	return &planCacheEntryRepo{
		db:  db,
		log: baseLog.With("repo", "PlanCacheEntryRepo"),
	}
}

func (r *planCacheEntryRepo) Insert(dbc dbctx.Context, entry *types.PlanCacheEntry) (*types.PlanCacheEntry, error) {
	if entry == nil || entry.Fingerprint == "" || entry.PlanID == uuid.Nil {
		return nil, errors.New("cache entry requires fingerprint and plan id")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	if entry.ExpiresAt != nil {
		exp := entry.ExpiresAt.UTC()
		entry.ExpiresAt = &exp
	}
	if err := dbc.Resolve(r.db).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *planCacheEntryRepo) FindFresh(dbc dbctx.Context, fingerprint string, now time.Time) (*types.PlanCacheEntry, error) {
	if fingerprint == "" {
		return nil, nil
	}
	var entry types.PlanCacheEntry
	err := dbc.Resolve(r.db).
		Where("fingerprint = ? AND (expires_at IS NULL OR expires_at > ?)", fingerprint, now.UTC()).
		Order("created_at DESC").
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == uuid.Nil {
		return nil, nil
	}
	return &entry, nil
}
