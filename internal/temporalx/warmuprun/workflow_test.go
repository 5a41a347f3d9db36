package warmuprun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/vinoplan-backend/internal/domain/workflows"
	"github.com/yungbote/vinoplan-backend/internal/jobs/steprun"
)

func newEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(func(ctx context.Context, runID string) (steprun.TickResult, error) {
		return steprun.TickResult{}, nil
	}, activity.RegisterOptions{Name: ActivityTick})
	return env
}

func TestWorkflowTicksUntilSucceeded(t *testing.T) {
	env := newEnv(t)
	resume := env.Now().Add(10 * time.Second)

	env.OnActivity(ActivityTick, mock.Anything, "run-1").
		Return(steprun.TickResult{RunID: "run-1", Status: workflows.RunStatusRunning, ResumeAfter: &resume}, nil).Once()
	env.OnActivity(ActivityTick, mock.Anything, "run-1").
		Return(steprun.TickResult{RunID: "run-1", Status: workflows.RunStatusRunning, Busy: true}, nil).Once()
	env.OnActivity(ActivityTick, mock.Anything, "run-1").
		Return(steprun.TickResult{RunID: "run-1", Status: workflows.RunStatusSucceeded, Stage: "done"}, nil).Once()

	env.ExecuteWorkflow(WorkflowName, "run-1")

	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var out steprun.TickResult
	if err := env.GetWorkflowResult(&out); err != nil {
		t.Fatalf("result: %v", err)
	}
	if out.Status != workflows.RunStatusSucceeded {
		t.Fatalf("status: got %q", out.Status)
	}
	env.AssertExpectations(t)
}

func TestWorkflowSurfacesExhaustedRun(t *testing.T) {
	env := newEnv(t)
	env.OnActivity(ActivityTick, mock.Anything, "run-2").
		Return(steprun.TickResult{RunID: "run-2", Status: workflows.RunStatusFailed, Stage: "generate-celebration-1", Error: "step exhausted"}, nil).Once()

	env.ExecuteWorkflow(WorkflowName, "run-2")

	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	err := env.GetWorkflowError()
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("want application error, got %v", err)
	}
	if appErr.Type() != ExhaustedErrorType {
		t.Fatalf("error type: got %q", appErr.Type())
	}
}

func TestWorkflowRejectsEmptyRunID(t *testing.T) {
	env := newEnv(t)
	env.ExecuteWorkflow(WorkflowName, "  ")
	if env.GetWorkflowError() == nil {
		t.Fatalf("want error for empty run id")
	}
}
