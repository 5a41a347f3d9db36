package policy

import "github.com/yungbote/vinoplan-backend/internal/modules/tasting"

// FoodPresets are the food pairing choices offered to callers who cannot type their own.
var FoodPresets = []string{
	"Pasta & Italian",
	"Steak & Grilled Meats",
	"Seafood & Shellfish",
	"Cheese & Charcuterie",
	"Spicy & Asian Cuisine",
	"Chocolate & Desserts",
}

var starterBudget = BudgetPreset{Label: "$20-40", Min: 20, Max: 40}

var budgetLadder = []BudgetPreset{
	starterBudget,
	{Label: "$40-75", Min: 40, Max: 75},
	{Label: "$75-150", Min: 75, Max: 150},
}

func intPtr(v int) *int { return &v }

// DefaultPolicies is the production tier table.
func DefaultPolicies() []TierPolicy {
	return []TierPolicy{
		{
			Tier:                 tasting.TierAnonymous,
			AllowCustomFoodText:  false,
			AllowSpecialRequests: false,
			AllowCustomBudget:    false,
			FoodOptions:          FoodPresets,
			ForceSurpriseMe:      true,
			BudgetPresets:        []BudgetPreset{starterBudget},
			FixedWineCount:       intPtr(3),
			WineCountMax:         3,
			DailyGenerationLimit: nil,
			CacheTTLHours:        nil,
		},
		{
			Tier:                 tasting.TierFree,
			AllowCustomFoodText:  true,
			AllowSpecialRequests: false,
			AllowCustomBudget:    false,
			FoodOptions:          FoodPresets,
			ForceSurpriseMe:      false,
			BudgetPresets:        budgetLadder,
			WineCountMax:         6,
			DailyGenerationLimit: intPtr(10),
			CacheTTLHours:        intPtr(24),
		},
		{
			Tier:                 tasting.TierPaid,
			AllowCustomFoodText:  true,
			AllowSpecialRequests: true,
			AllowCustomBudget:    true,
			FoodOptions:          FoodPresets,
			ForceSurpriseMe:      false,
			BudgetPresets:        budgetLadder,
			WineCountMax:         12,
			DailyGenerationLimit: nil,
			CacheTTLHours:        intPtr(24),
		},
	}
}

// Defaults builds the production table. The defaults are known-good, so a failure panics.
func Defaults() *Table {
	t, err := NewTable(DefaultPolicies()...)
	if err != nil {
		panic(err)
	}
	return t
}
