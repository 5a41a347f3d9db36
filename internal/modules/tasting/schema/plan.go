package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var planValidate = validator.New(validator.WithRequiredStructEnabled())

// FlavorProfile dimensions are pointers so a missing key is distinguishable from 0.
type flavorProfilePayload struct {
	Acidity   *float64 `json:"acidity" validate:"required,gte=0,lte=5"`
	Tannin    *float64 `json:"tannin" validate:"required,gte=0,lte=5"`
	Sweetness *float64 `json:"sweetness" validate:"required,gte=0,lte=5"`
	Alcohol   *float64 `json:"alcohol" validate:"required,gte=0,lte=5"`
	Body      *float64 `json:"body" validate:"required,gte=0,lte=5"`
}

type winePayload struct {
	Varietal          string                `json:"varietal" validate:"required"`
	Region            string                `json:"region" validate:"required"`
	WineType          string                `json:"wineType" validate:"required,oneof=red white rose sparkling"`
	Description       string                `json:"description" validate:"required"`
	PairingRationale  string                `json:"pairingRationale" validate:"required"`
	FlavorNotes       []string              `json:"flavorNotes" validate:"required,dive,required"`
	FlavorProfile     *flavorProfilePayload `json:"flavorProfile" validate:"required"`
	EstimatedPriceMin *float64              `json:"estimatedPriceMin" validate:"required,gte=0"`
	EstimatedPriceMax *float64              `json:"estimatedPriceMax" validate:"required,gte=0"`
	TastingOrder      *int                  `json:"tastingOrder" validate:"required,gt=0"`
}

type planPayload struct {
	Title                 string        `json:"title" validate:"required"`
	Description           string        `json:"description" validate:"required"`
	TastingTips           []string      `json:"tastingTips" validate:"required,dive,required"`
	TotalEstimatedCostMin *float64      `json:"totalEstimatedCostMin" validate:"required,gte=0"`
	TotalEstimatedCostMax *float64      `json:"totalEstimatedCostMax" validate:"required,gte=0"`
	Wines                 []winePayload `json:"wines" validate:"required,min=1,dive"`
}

type FlavorProfile struct {
	Acidity   float64 `json:"acidity"`
	Tannin    float64 `json:"tannin"`
	Sweetness float64 `json:"sweetness"`
	Alcohol   float64 `json:"alcohol"`
	Body      float64 `json:"body"`
}

type Wine struct {
	Varietal          string        `json:"varietal"`
	Region            string        `json:"region"`
	WineType          string        `json:"wineType"`
	Description       string        `json:"description"`
	PairingRationale  string        `json:"pairingRationale"`
	FlavorNotes       []string      `json:"flavorNotes"`
	FlavorProfile     FlavorProfile `json:"flavorProfile"`
	EstimatedPriceMin float64       `json:"estimatedPriceMin"`
	EstimatedPriceMax float64       `json:"estimatedPriceMax"`
	TastingOrder      int           `json:"tastingOrder"`
}

// Plan is an AI response that passed every schema rule. Wines are ordered by TastingOrder.
type Plan struct {
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	TastingTips           []string `json:"tastingTips"`
	TotalEstimatedCostMin float64  `json:"totalEstimatedCostMin"`
	TotalEstimatedCostMax float64  `json:"totalEstimatedCostMax"`
	Wines                 []Wine   `json:"wines"`
}

type Issue struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Error lists every schema violation found in one AI response.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "schema: invalid plan"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+" "+is.Rule)
	}
	return "schema: invalid plan: " + strings.Join(parts, "; ")
}

func (e *Error) add(field, rule string) {
	e.Issues = append(e.Issues, Issue{Field: field, Rule: rule})
}

// Parse decodes and validates raw AI output. wantWines > 0 additionally requires that many wines.
// It returns either a fully valid Plan or a *Error; partial data is never returned.
func Parse(raw []byte, wantWines int) (*Plan, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var p planPayload
	if err := dec.Decode(&p); err != nil {
		return nil, &Error{Issues: []Issue{{Field: "$", Rule: "json: " + err.Error()}}}
	}

	se := &Error{}
	if err := planValidate.Struct(&p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("schema: validator: %w", err)
		}
		for _, fe := range verrs {
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			se.add(fieldPath(fe.Namespace()), rule)
		}
		return nil, se
	}

	if *p.TotalEstimatedCostMin > *p.TotalEstimatedCostMax {
		se.add("totalEstimatedCostMax", "gtefield=totalEstimatedCostMin")
	}
	seenOrder := map[int]bool{}
	for i, w := range p.Wines {
		if *w.EstimatedPriceMin > *w.EstimatedPriceMax {
			se.add(fmt.Sprintf("wines[%d].estimatedPriceMax", i), "gtefield=estimatedPriceMin")
		}
		if seenOrder[*w.TastingOrder] {
			se.add(fmt.Sprintf("wines[%d].tastingOrder", i), "unique")
		}
		seenOrder[*w.TastingOrder] = true
	}
	if wantWines > 0 && len(p.Wines) != wantWines {
		se.add("wines", fmt.Sprintf("len=%d", wantWines))
	}
	if len(se.Issues) > 0 {
		return nil, se
	}
	return toPlan(p), nil
}

func toPlan(p planPayload) *Plan {
	out := &Plan{
		Title:                 strings.TrimSpace(p.Title),
		Description:           strings.TrimSpace(p.Description),
		TastingTips:           append([]string(nil), p.TastingTips...),
		TotalEstimatedCostMin: *p.TotalEstimatedCostMin,
		TotalEstimatedCostMax: *p.TotalEstimatedCostMax,
		Wines:                 make([]Wine, 0, len(p.Wines)),
	}
	for _, w := range p.Wines {
		out.Wines = append(out.Wines, Wine{
			Varietal:         strings.TrimSpace(w.Varietal),
			Region:           strings.TrimSpace(w.Region),
			WineType:         w.WineType,
			Description:      strings.TrimSpace(w.Description),
			PairingRationale: strings.TrimSpace(w.PairingRationale),
			FlavorNotes:      append([]string(nil), w.FlavorNotes...),
			FlavorProfile: FlavorProfile{
				Acidity:   *w.FlavorProfile.Acidity,
				Tannin:    *w.FlavorProfile.Tannin,
				Sweetness: *w.FlavorProfile.Sweetness,
				Alcohol:   *w.FlavorProfile.Alcohol,
				Body:      *w.FlavorProfile.Body,
			},
			EstimatedPriceMin: *w.EstimatedPriceMin,
			EstimatedPriceMax: *w.EstimatedPriceMax,
			TastingOrder:      *w.TastingOrder,
		})
	}
	sort.SliceStable(out.Wines, func(i, j int) bool { return out.Wines[i].TastingOrder < out.Wines[j].TastingOrder })
	return out
}

// fieldPath turns "planPayload.Wines[0].FlavorProfile.Acidity" into "wines[0].flavorProfile.acidity".
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToLower(p[:1]) + p[1:]
	}
	return strings.Join(parts, ".")
}
