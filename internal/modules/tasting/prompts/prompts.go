// Package prompts renders the tasting plan prompt pair sent to the model.
package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
)

// Version is bumped whenever the wording changes enough to invalidate comparisons.
const Version = 1

const systemTemplate = `You are a sommelier designing an at-home wine tasting.
Return a single JSON object that matches the tasting_plan schema and nothing else.
Every flavorProfile dimension is a number from 0 to 5.
Number tastingOrder from 1 in the order the wines should be poured.
Keep each wine's estimated price inside the guest budget of {{.Currency}} {{.BudgetMin}}-{{.BudgetMax}} per bottle.`

const userTemplate = `Occasion: {{.Occasion}}
Food: {{if .FoodPairing}}{{.FoodPairing}}{{else}}none specified{{end}}
Regions: {{if .Regions}}{{.Regions}}{{else}}surprise me{{end}}
Number of wines: {{.WineCount}}
{{- if .SpecialRequest}}
Special request: {{.SpecialRequest}}
{{- end}}`

// Input is the template view of a GenerationRequest.
type Input struct {
	Occasion       string
	FoodPairing    string
	Regions        string
	BudgetMin      string
	BudgetMax      string
	Currency       string
	WineCount      int
	SpecialRequest string
}

var (
	systemT = template.Must(template.New("system").Option("missingkey=zero").Parse(systemTemplate))
	userT   = template.Must(template.New("user").Option("missingkey=zero").Parse(userTemplate))
)

func InputFor(req tasting.GenerationRequest) Input {
	return Input{
		Occasion:       strings.ReplaceAll(string(req.Occasion), "_", " "),
		FoodPairing:    strings.TrimSpace(req.FoodPairing),
		Regions:        strings.Join(req.RegionPreferences, ", "),
		BudgetMin:      formatMoney(req.BudgetMin),
		BudgetMax:      formatMoney(req.BudgetMax),
		Currency:       req.CurrencyOrDefault(),
		WineCount:      req.WineCount,
		SpecialRequest: strings.TrimSpace(req.SpecialRequest),
	}
}

// Render returns the system and user prompts for req.
func Render(req tasting.GenerationRequest) (system string, user string) {
	in := InputFor(req)
	return render(systemT, in), render(userT, in)
}

func render(t *template.Template, in Input) string {
	var b bytes.Buffer
	_ = t.Execute(&b, in)
	return strings.TrimSpace(b.String())
}

func formatMoney(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
