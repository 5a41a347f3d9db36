package policy

import (
	"fmt"
	"slices"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
)

type BudgetPreset struct {
	Label string  `json:"label" yaml:"label"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
}

// TierPolicy is the feature gate and quota set for one subscription tier.
// Nil pointers mean "not fixed" (wine count) or "unlimited" (daily limit, cache TTL).
type TierPolicy struct {
	Tier                 tasting.Tier   `json:"tier" yaml:"tier"`
	AllowCustomFoodText  bool           `json:"allowCustomFoodText" yaml:"allow_custom_food_text"`
	AllowSpecialRequests bool           `json:"allowSpecialRequests" yaml:"allow_special_requests"`
	AllowCustomBudget    bool           `json:"allowCustomBudget" yaml:"allow_custom_budget"`
	FoodOptions          []string       `json:"foodOptions" yaml:"food_options"`
	ForceSurpriseMe      bool           `json:"forceSurpriseMe" yaml:"force_surprise_me"`
	BudgetPresets        []BudgetPreset `json:"budgetPresets" yaml:"budget_presets"`
	FixedWineCount       *int           `json:"fixedWineCount" yaml:"fixed_wine_count"`
	WineCountMax         int            `json:"wineCountMax" yaml:"wine_count_max"`
	DailyGenerationLimit *int           `json:"dailyGenerationLimit" yaml:"daily_generation_limit"`
	CacheTTLHours        *int           `json:"cacheTtlHours" yaml:"cache_ttl_hours"`
}

func (p TierPolicy) clone() TierPolicy {
	out := p
	out.FoodOptions = slices.Clone(p.FoodOptions)
	out.BudgetPresets = slices.Clone(p.BudgetPresets)
	out.FixedWineCount = cloneInt(p.FixedWineCount)
	out.DailyGenerationLimit = cloneInt(p.DailyGenerationLimit)
	out.CacheTTLHours = cloneInt(p.CacheTTLHours)
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// Table is the read-only tier policy set. Build it once at startup and inject it.
type Table struct {
	byTier map[tasting.Tier]TierPolicy
}

// NewTable requires exactly one policy for every known tier.
func NewTable(policies ...TierPolicy) (*Table, error) {
	byTier := make(map[tasting.Tier]TierPolicy, len(policies))
	for _, p := range policies {
		if _, ok := tasting.ParseTier(string(p.Tier)); !ok {
			return nil, fmt.Errorf("policy: unknown tier %q", p.Tier)
		}
		if _, dup := byTier[p.Tier]; dup {
			return nil, fmt.Errorf("policy: duplicate policy for tier %q", p.Tier)
		}
		if err := checkPolicy(p); err != nil {
			return nil, err
		}
		byTier[p.Tier] = p.clone()
	}
	for _, tier := range tasting.Tiers {
		if _, ok := byTier[tier]; !ok {
			return nil, fmt.Errorf("policy: missing policy for tier %q", tier)
		}
	}
	return &Table{byTier: byTier}, nil
}

func checkPolicy(p TierPolicy) error {
	if p.FixedWineCount != nil && *p.FixedWineCount < 1 {
		return fmt.Errorf("policy %s: fixed wine count must be positive", p.Tier)
	}
	if p.FixedWineCount == nil && p.WineCountMax < 1 {
		return fmt.Errorf("policy %s: wine count max must be positive", p.Tier)
	}
	if !p.AllowCustomFoodText && len(p.FoodOptions) == 0 {
		return fmt.Errorf("policy %s: food options required when custom food text is disabled", p.Tier)
	}
	if !p.AllowCustomBudget && len(p.BudgetPresets) == 0 {
		return fmt.Errorf("policy %s: budget presets required when custom budget is disabled", p.Tier)
	}
	for _, b := range p.BudgetPresets {
		if b.Min < 0 || b.Max < b.Min {
			return fmt.Errorf("policy %s: invalid budget preset %q", p.Tier, b.Label)
		}
	}
	if p.DailyGenerationLimit != nil && *p.DailyGenerationLimit < 0 {
		return fmt.Errorf("policy %s: daily generation limit must not be negative", p.Tier)
	}
	if p.CacheTTLHours != nil && *p.CacheTTLHours <= 0 {
		return fmt.Errorf("policy %s: cache ttl hours must be positive", p.Tier)
	}
	return nil
}

// For returns a copy of the tier's policy. An unknown tier is a programming error and panics.
func (t *Table) For(tier tasting.Tier) TierPolicy {
	p, ok := t.byTier[tier]
	if !ok {
		panic(fmt.Sprintf("policy: no policy for tier %q", tier))
	}
	return p.clone()
}

// Anonymous is shorthand for the most restricted tier's policy.
func (t *Table) Anonymous() TierPolicy { return t.For(tasting.TierAnonymous) }
