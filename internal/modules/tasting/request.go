// Package tasting holds the request model and error taxonomy shared by the
// plan generation path and the warmup pipeline.
package tasting

import "strings"

type Tier string

const (
	TierAnonymous Tier = "anonymous"
	TierFree      Tier = "free"
	TierPaid      Tier = "paid"
)

// Tiers lists every tier, most restricted first.
var Tiers = []Tier{TierAnonymous, TierFree, TierPaid}

func ParseTier(s string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierAnonymous:
		return TierAnonymous, true
	case TierFree:
		return TierFree, true
	case TierPaid:
		return TierPaid, true
	default:
		return "", false
	}
}

type Occasion string

const (
	OccasionDinnerParty     Occasion = "dinner_party"
	OccasionDateNight       Occasion = "date_night"
	OccasionCasualGathering Occasion = "casual_gathering"
	OccasionCelebration     Occasion = "celebration"
	OccasionHolidayFeast    Occasion = "holiday_feast"
	OccasionWineEducation   Occasion = "wine_education"
)

// Occasions is the supported occasion list in display order. The warmup
// pipeline enumerates combinations in this order.
var Occasions = []Occasion{
	OccasionDinnerParty,
	OccasionDateNight,
	OccasionCasualGathering,
	OccasionCelebration,
	OccasionHolidayFeast,
	OccasionWineEducation,
}

func (o Occasion) Valid() bool {
	for _, known := range Occasions {
		if o == known {
			return true
		}
	}
	return false
}

const DefaultCurrency = "USD"

// GenerationRequest is the wizard input for one tasting plan.
type GenerationRequest struct {
	Occasion          Occasion `json:"occasion" binding:"required"`
	FoodPairing       string   `json:"foodPairing"`
	RegionPreferences []string `json:"regionPreferences"`
	BudgetMin         float64  `json:"budgetMin" binding:"gte=0"`
	BudgetMax         float64  `json:"budgetMax" binding:"gte=0"`
	Currency          string   `json:"currency"`
	WineCount         int      `json:"wineCount"`
	SpecialRequest    string   `json:"specialRequest,omitempty"`

	// Tier is taken from the caller identity, never from the request body.
	Tier Tier `json:"-"`
}

// CurrencyOrDefault returns the upper-cased currency, defaulting to USD.
func (r GenerationRequest) CurrencyOrDefault() string {
	c := strings.ToUpper(strings.TrimSpace(r.Currency))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

func (r GenerationRequest) HasSpecialRequest() bool {
	return strings.TrimSpace(r.SpecialRequest) != ""
}
