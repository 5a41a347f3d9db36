package validate

import (
	"fmt"
	"strings"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/policy"
)

const (
	ReasonSpecialRequest  = "Special requests require upgrade to a paid plan."
	ReasonAnonFood        = "Sign up for a free account to choose your own food pairing."
	ReasonAnonRegions     = "Sign up for a free account to pick wine regions."
	ReasonAnonBudget      = "Sign up for a free account to customize your budget."
	ReasonAnonWineCount   = "Sign up for a free account to choose how many wines to taste."
	ReasonFood            = "Custom food pairings require upgrade. Pick one of the suggested pairings."
	ReasonRegions         = "Choosing wine regions requires upgrade."
	ReasonBudget          = "Custom budgets require upgrade to a paid plan. Pick one of the budget presets."
	ReasonBudgetRange     = "Minimum budget cannot be higher than maximum budget."
	ReasonUnknownOccasion = "Please choose an occasion."
)

// Validator checks generation requests against the injected tier table before any expensive work.
type Validator struct {
	policies *policy.Table
}

func New(policies *policy.Table) *Validator {
	return &Validator{policies: policies}
}

// Validate returns nil when req is allowed for tier, or a tasting.PolicyError wrapping
// tasting.ErrValidationRejected with the first violated rule.
func (v *Validator) Validate(req tasting.GenerationRequest, tier tasting.Tier) error {
	p := v.policies.For(tier)

	// Applies to every tier and runs first.
	if req.HasSpecialRequest() && !p.AllowSpecialRequests {
		return tasting.Rejected(ReasonSpecialRequest)
	}

	if tier == tasting.TierAnonymous {
		return validateAnonymous(req, p)
	}
	return validateUpgraded(req, p)
}

func validateAnonymous(req tasting.GenerationRequest, p policy.TierPolicy) error {
	if !req.Occasion.Valid() {
		return tasting.Rejected(ReasonUnknownOccasion)
	}
	if !containsFold(p.FoodOptions, req.FoodPairing) {
		return tasting.Rejected(ReasonAnonFood)
	}
	if len(nonEmpty(req.RegionPreferences)) > 0 {
		return tasting.Rejected(ReasonAnonRegions)
	}
	if len(p.BudgetPresets) != 1 || !matchesPreset(p.BudgetPresets[0], req) {
		return tasting.Rejected(ReasonAnonBudget)
	}
	if p.FixedWineCount == nil || req.WineCount != *p.FixedWineCount {
		return tasting.Rejected(ReasonAnonWineCount)
	}
	return nil
}

func validateUpgraded(req tasting.GenerationRequest, p policy.TierPolicy) error {
	if !req.Occasion.Valid() {
		return tasting.Rejected(ReasonUnknownOccasion)
	}
	if !p.AllowCustomFoodText && !containsFold(p.FoodOptions, req.FoodPairing) {
		return tasting.Rejected(ReasonFood)
	}
	if p.ForceSurpriseMe && len(nonEmpty(req.RegionPreferences)) > 0 {
		return tasting.Rejected(ReasonRegions)
	}
	if req.BudgetMin > req.BudgetMax {
		return tasting.Rejected(ReasonBudgetRange)
	}
	if !p.AllowCustomBudget {
		ok := false
		for _, preset := range p.BudgetPresets {
			if matchesPreset(preset, req) {
				ok = true
				break
			}
		}
		if !ok {
			return tasting.Rejected(ReasonBudget)
		}
	}
	if p.FixedWineCount != nil {
		if req.WineCount != *p.FixedWineCount {
			return tasting.Rejected(fmt.Sprintf("Your plan includes exactly %d wines.", *p.FixedWineCount))
		}
		return nil
	}
	if req.WineCount < 1 || req.WineCount > p.WineCountMax {
		return tasting.Rejected(fmt.Sprintf("Choose between 1 and %d wines.", p.WineCountMax))
	}
	return nil
}

func matchesPreset(b policy.BudgetPreset, req tasting.GenerationRequest) bool {
	return req.BudgetMin == b.Min && req.BudgetMax == b.Max
}

func containsFold(options []string, v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), v) {
			return true
		}
	}
	return false
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
