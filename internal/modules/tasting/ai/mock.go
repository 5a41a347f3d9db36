package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/schema"
)

type mockWine struct {
	varietal, region, wineType string
	notes                      []string
	profile                    [5]float64
}

var mockCellar = []mockWine{
	{"Prosecco", "Veneto", "sparkling", []string{"green apple", "pear"}, [5]float64{3.5, 0, 1.5, 2, 1.5}},
	{"Sauvignon Blanc", "Marlborough", "white", []string{"grapefruit", "cut grass"}, [5]float64{4.5, 0, 0.5, 2.5, 2}},
	{"Provence Rosé", "Provence", "rose", []string{"strawberry", "melon"}, [5]float64{3.5, 0.5, 1, 2.5, 2}},
	{"Pinot Noir", "Willamette Valley", "red", []string{"cherry", "forest floor"}, [5]float64{3.5, 2, 0.5, 3, 2.5}},
	{"Chianti Classico", "Tuscany", "red", []string{"sour cherry", "dried herbs"}, [5]float64{4, 3.5, 0, 3, 3.5}},
	{"Malbec", "Mendoza", "red", []string{"plum", "cocoa"}, [5]float64{3, 3.5, 0.5, 3.5, 4}},
	{"Syrah", "Northern Rhône", "red", []string{"blackberry", "black pepper"}, [5]float64{3, 4, 0, 3.5, 4}},
	{"Riesling Spätlese", "Mosel", "white", []string{"peach", "petrol"}, [5]float64{4.5, 0, 3.5, 1.5, 2}},
}

// MockGenerator builds a deterministic plan from the request without calling out.
// Its output goes through the same schema validation as a real model response.
type MockGenerator struct{}

func NewMockGenerator() Generator { return MockGenerator{} }

func (MockGenerator) Generate(ctx context.Context, req tasting.GenerationRequest) (*schema.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, tasting.UpstreamFailure("mock generate", err)
	}
	count := req.WineCount
	if count <= 0 {
		count = 3
	}
	occasion := strings.ReplaceAll(string(req.Occasion), "_", " ")
	food := strings.TrimSpace(req.FoodPairing)
	if food == "" {
		food = "whatever is on the table"
	}
	start := len(occasion) + len(food)

	wines := make([]map[string]any, 0, count)
	var totalMin, totalMax float64
	for i := 0; i < count; i++ {
		w := mockCellar[(start+i)%len(mockCellar)]
		lo, hi := req.BudgetMin, req.BudgetMax
		if hi < lo {
			hi = lo
		}
		totalMin += lo
		totalMax += hi
		wines = append(wines, map[string]any{
			"varietal":          w.varietal,
			"region":            w.region,
			"wineType":          w.wineType,
			"description":       fmt.Sprintf("A %s %s from %s.", w.wineType, w.varietal, w.region),
			"pairingRationale":  fmt.Sprintf("Chosen to go with %s.", food),
			"flavorNotes":       w.notes,
			"flavorProfile":     map[string]any{"acidity": w.profile[0], "tannin": w.profile[1], "sweetness": w.profile[2], "alcohol": w.profile[3], "body": w.profile[4]},
			"estimatedPriceMin": lo,
			"estimatedPriceMax": hi,
			"tastingOrder":      i + 1,
		})
	}
	raw, err := json.Marshal(map[string]any{
		"title":                 fmt.Sprintf("A %s tasting", occasion),
		"description":           fmt.Sprintf("%d wines for a %s with %s.", count, occasion, food),
		"tastingTips":           []string{"Pour light to bold.", "Keep water and plain crackers nearby."},
		"totalEstimatedCostMin": totalMin,
		"totalEstimatedCostMax": totalMax,
		"wines":                 wines,
	})
	if err != nil {
		return nil, tasting.UpstreamFailure("mock generate", err)
	}
	plan, err := schema.Parse(raw, count)
	if err != nil {
		return nil, tasting.UpstreamFailure("mock schema", err)
	}
	return plan, nil
}
