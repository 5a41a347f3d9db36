// Package warmuprun drives warmup step runs from a Temporal workflow. The workflow owns
// scheduling only; step state lives in the database step log and is advanced by the
// tick activity.
package warmuprun

const (
	WorkflowName = "plan_warmup"
	ActivityTick = "plan_warmup_tick"

	// ExhaustedErrorType is the application error type of a run that failed a step for good.
	ExhaustedErrorType = "WorkflowStepExhausted"
)

func WorkflowID(runID string) string { return "plan_warmup:" + runID }
