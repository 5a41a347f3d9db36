package warmuprun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/vinoplan-backend/internal/domain/workflows"
	"github.com/yungbote/vinoplan-backend/internal/jobs/steprun"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
)

const (
	defaultPollInterval  = 2 * time.Second
	maxSleep             = 5 * time.Minute
	continueTickLimit    = 1000
	continueHistoryLimit = 10000
)

// Workflow ticks one run until it is terminal, sleeping until the run's resume time between
// ticks. Step retries and pacing are decided by the engine, not by Temporal.
func Workflow(ctx workflow.Context, runID string) (steprun.TickResult, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return steprun.TickResult{}, temporal.NewNonRetryableApplicationError("missing run id", "InvalidInput", nil)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		// Only infrastructure errors reach here; step failures are recorded by the engine.
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	})

	for ticks := 1; ; ticks++ {
		var out steprun.TickResult
		if err := workflow.ExecuteActivity(ctx, ActivityTick, runID).Get(ctx, &out); err != nil {
			return out, err
		}

		switch out.Status {
		case workflows.RunStatusSucceeded:
			return out, nil
		case workflows.RunStatusFailed:
			return out, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("warmup run failed at %s: %s", out.Stage, out.Error),
				ExhaustedErrorType,
				tasting.ErrWorkflowStepExhausted,
			)
		}

		if d := nextWait(ctx, out); d > 0 {
			if err := workflow.Sleep(ctx, d); err != nil {
				return out, err
			}
		}
		if shouldContinueAsNew(ctx, ticks) {
			return out, workflow.NewContinueAsNewError(ctx, Workflow, runID)
		}
	}
}

func nextWait(ctx workflow.Context, out steprun.TickResult) time.Duration {
	if out.Busy || out.ResumeAfter == nil || out.ResumeAfter.IsZero() {
		return defaultPollInterval
	}
	d := out.ResumeAfter.Sub(workflow.Now(ctx))
	if d <= 0 {
		return 0
	}
	if d > maxSleep {
		return maxSleep
	}
	return d
}

func shouldContinueAsNew(ctx workflow.Context, ticks int) bool {
	if ticks >= continueTickLimit {
		return true
	}
	info := workflow.GetInfo(ctx)
	return info != nil && info.GetCurrentHistoryLength() >= continueHistoryLimit
}
