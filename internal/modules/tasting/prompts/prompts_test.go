package prompts

import (
	"strings"
	"testing"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
)

func TestRenderIncludesRequestFields(t *testing.T) {
	system, user := Render(tasting.GenerationRequest{
		Occasion:          tasting.OccasionDateNight,
		FoodPairing:       " Seafood & Shellfish ",
		RegionPreferences: []string{"Loire", "Champagne"},
		BudgetMin:         40,
		BudgetMax:         75.5,
		WineCount:         4,
		SpecialRequest:    "no oak",
	})
	for _, want := range []string{"USD 40-75.50"} {
		if !strings.Contains(system, want) {
			t.Fatalf("system missing %q: %s", want, system)
		}
	}
	for _, want := range []string{"Occasion: date night", "Food: Seafood & Shellfish", "Regions: Loire, Champagne", "Number of wines: 4", "Special request: no oak"} {
		if !strings.Contains(user, want) {
			t.Fatalf("user missing %q: %s", want, user)
		}
	}
}

func TestRenderSurpriseMe(t *testing.T) {
	_, user := Render(tasting.GenerationRequest{Occasion: tasting.OccasionCelebration, WineCount: 3})
	if !strings.Contains(user, "Regions: surprise me") || strings.Contains(user, "Special request") {
		t.Fatalf("user=%s", user)
	}
}
