package plans

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/platform/jsoncol"
)

// PlanCacheEntry maps a request fingerprint to a plan. Rows are never updated;
// a nil ExpiresAt never expires. Fingerprint is intentionally not unique.
type PlanCacheEntry struct {
	ID                uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Fingerprint       string       `gorm:"column:fingerprint;not null;index:idx_plan_cache_fp_created,priority:1" json:"fingerprint"`
	PlanID            uuid.UUID    `gorm:"type:uuid;column:plan_id;not null;index" json:"planId"`
	Tier              string       `gorm:"column:tier;not null" json:"tier"`
	NormalizedRequest jsoncol.JSON `gorm:"column:normalized_request" json:"normalizedRequest"`
	CreatedAt         time.Time    `gorm:"not null;index:idx_plan_cache_fp_created,priority:2" json:"createdAt"`
	ExpiresAt         *time.Time   `gorm:"column:expires_at;index" json:"expiresAt,omitempty"`
}

func (PlanCacheEntry) TableName() string { return "plan_cache_entry" }

// FreshAt reports whether the entry is still visible at now. ExpiresAt == now is expired.
func (e PlanCacheEntry) FreshAt(now time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

// GenerationLog is one completed generation by an identified user.
type GenerationLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;column:user_id;not null;index:idx_generation_log_user_created,priority:1" json:"userId"`
	PlanID    uuid.UUID `gorm:"type:uuid;column:plan_id;not null" json:"planId"`
	CreatedAt time.Time `gorm:"not null;index:idx_generation_log_user_created,priority:2" json:"createdAt"`
}

func (GenerationLog) TableName() string { return "generation_log" }
