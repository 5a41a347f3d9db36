package plan_warmup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yungbote/vinoplan-backend/internal/jobs/steprun"
	"github.com/yungbote/vinoplan-backend/internal/services"
)

// Steps is enumerate, one generate step per combination, then summary. The combination
// list comes from the injected policy table, so it is the same on every replay.
func (p *Pipeline) Steps(_ []byte) ([]steprun.Step, error) {
	combos := Enumerate(p.policies)
	if len(combos) == 0 {
		return nil, fmt.Errorf("plan_warmup: no anonymous combinations to warm")
	}
	steps := make([]steprun.Step, 0, len(combos)+2)
	steps = append(steps, steprun.Step{
		Name: services.WarmupEnumerateStep,
		Run: func(context.Context, steprun.Results) (any, error) {
			return combos, nil
		},
	})
	for i, c := range combos {
		pace := generatedOnly
		// Summary makes no AI call, so nothing waits after the last combination.
		if i == len(combos)-1 {
			pace = nil
		}
		steps = append(steps, steprun.Step{
			Name: c.Step,
			Run:  p.generate(c),
			Pace: pace,
		})
	}
	steps = append(steps, steprun.Step{
		Name: services.WarmupSummaryStep,
		Run: func(_ context.Context, done steprun.Results) (any, error) {
			return summarize(combos, done)
		},
	})
	return steps, nil
}

func (p *Pipeline) generate(c Combination) func(context.Context, steprun.Results) (any, error) {
	return func(ctx context.Context, _ steprun.Results) (any, error) {
		out, err := p.warmer.Warm(ctx, Request(p.policies, c))
		if err != nil {
			return nil, err
		}
		p.log.Info("warmup combination done", "step", c.Step, "status", out.Status, "plan_id", out.PlanID)
		return services.WarmupStepResult{
			Step:        c.Step,
			Occasion:    string(c.Occasion),
			FoodIndex:   c.FoodIndex,
			FoodPairing: c.FoodPairing,
			Status:      out.Status,
			PlanID:      out.PlanID,
		}, nil
	}
}

// generatedOnly paces only after a real AI call.
func generatedOnly(raw json.RawMessage) bool {
	var r services.WarmupStepResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return true
	}
	return r.Status == services.WarmGenerated
}

func summarize(combos []Combination, done steprun.Results) (services.WarmupSummary, error) {
	results := make([]services.WarmupStepResult, 0, len(combos))
	for _, c := range combos {
		var r services.WarmupStepResult
		ok, err := done.Decode(c.Step, &r)
		if err != nil {
			return services.WarmupSummary{}, err
		}
		if !ok {
			return services.WarmupSummary{}, fmt.Errorf("plan_warmup: summary before %s completed", c.Step)
		}
		results = append(results, r)
	}
	return services.SummarizeWarmup(len(combos), results), nil
}
