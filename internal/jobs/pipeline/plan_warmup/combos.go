package plan_warmup

import (
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/policy"
	"github.com/yungbote/vinoplan-backend/internal/services"
)

// Combination is one legal anonymous input: an occasion and a preset food option.
type Combination struct {
	Step        string           `json:"step"`
	Occasion    tasting.Occasion `json:"occasion"`
	FoodIndex   int              `json:"foodIndex"`
	FoodPairing string           `json:"foodPairing"`
}

// Enumerate returns occasions x anonymous food options, occasion-major, in display order.
func Enumerate(policies *policy.Table) []Combination {
	foods := policies.Anonymous().FoodOptions
	out := make([]Combination, 0, len(tasting.Occasions)*len(foods))
	for _, occ := range tasting.Occasions {
		for i, food := range foods {
			out = append(out, Combination{
				Step:        services.WarmupStepName(occ, i),
				Occasion:    occ,
				FoodIndex:   i,
				FoodPairing: food,
			})
		}
	}
	return out
}

// Request builds the canonical anonymous request for c: the single budget preset, the fixed
// wine count and no regions.
func Request(policies *policy.Table, c Combination) tasting.GenerationRequest {
	anon := policies.Anonymous()
	req := tasting.GenerationRequest{
		Occasion:          c.Occasion,
		FoodPairing:       c.FoodPairing,
		RegionPreferences: []string{},
		Currency:          tasting.DefaultCurrency,
		Tier:              tasting.TierAnonymous,
	}
	if len(anon.BudgetPresets) > 0 {
		req.BudgetMin = anon.BudgetPresets[0].Min
		req.BudgetMax = anon.BudgetPresets[0].Max
	}
	if anon.FixedWineCount != nil {
		req.WineCount = *anon.FixedWineCount
	}
	return req
}
