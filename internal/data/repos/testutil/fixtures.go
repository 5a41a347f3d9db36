package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/vinoplan-backend/internal/domain"
	"github.com/yungbote/vinoplan-backend/internal/platform/jsoncol"
)

func SeedPlan(tb testing.TB, ctx context.Context, tx *gorm.DB, fingerprint string) *types.TastingPlan {
	tb.Helper()
	planID := uuid.New()
	p := &types.TastingPlan{
		ID:                    planID,
		Tier:                  "anonymous",
		Source:                "warmup",
		Fingerprint:           fingerprint,
		Occasion:              "dinner_party",
		FoodPairing:           "Pasta & Italian",
		Currency:              "USD",
		Title:                 "seed",
		TastingTips:           jsoncol.JSON([]byte(`["tip"]`)),
		TotalEstimatedCostMin: 60,
		TotalEstimatedCostMax: 120,
		Wines: []types.PlanWine{{
			ID:           uuid.New(),
			PlanID:       planID,
			TastingOrder: 1,
			Varietal:     "Barbera",
			Region:       "Piedmont",
			WineType:     "red",
			FlavorNotes:  jsoncol.JSON([]byte(`["cherry"]`)),
		}},
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed plan: %v", err)
	}
	return p
}

func SeedGenerationLogs(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, at time.Time, n int) {
	tb.Helper()
	for i := 0; i < n; i++ {
		row := &types.GenerationLog{ID: uuid.New(), UserID: userID, PlanID: uuid.New(), CreatedAt: at.UTC()}
		if err := tx.WithContext(ctx).Create(row).Error; err != nil {
			tb.Fatalf("seed generation log: %v", err)
		}
	}
}
