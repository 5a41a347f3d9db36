package schema

import "sort"

// Name is the structured-output schema name sent to the model.
const Name = "tasting_plan"

func num(min, max *float64) map[string]any {
	m := map[string]any{"type": "number"}
	if min != nil {
		m["minimum"] = *min
	}
	if max != nil {
		m["maximum"] = *max
	}
	return m
}

func f(v float64) *float64 { return &v }

func strArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func object(props map[string]any) map[string]any {
	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}
	sort.Strings(required)
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// JSONSchema mirrors the validator rules in Parse for strict structured output.
func JSONSchema() map[string]any {
	flavor := object(map[string]any{
		"acidity":   num(f(0), f(5)),
		"tannin":    num(f(0), f(5)),
		"sweetness": num(f(0), f(5)),
		"alcohol":   num(f(0), f(5)),
		"body":      num(f(0), f(5)),
	})
	wine := object(map[string]any{
		"varietal":          map[string]any{"type": "string"},
		"region":            map[string]any{"type": "string"},
		"wineType":          map[string]any{"type": "string", "enum": []string{"red", "white", "rose", "sparkling"}},
		"description":       map[string]any{"type": "string"},
		"pairingRationale":  map[string]any{"type": "string"},
		"flavorNotes":       strArray(),
		"flavorProfile":     flavor,
		"estimatedPriceMin": num(f(0), nil),
		"estimatedPriceMax": num(f(0), nil),
		"tastingOrder":      map[string]any{"type": "integer", "minimum": 1},
	})
	return object(map[string]any{
		"title":                 map[string]any{"type": "string"},
		"description":           map[string]any{"type": "string"},
		"tastingTips":           strArray(),
		"totalEstimatedCostMin": num(f(0), nil),
		"totalEstimatedCostMax": num(f(0), nil),
		"wines":                 map[string]any{"type": "array", "minItems": 1, "items": wine},
	})
}
