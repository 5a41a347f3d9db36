package warmuprun

import (
	"context"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
)

// Dispatcher starts the Temporal workflow for a newly created run.
type Dispatcher struct {
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewDispatcher(tc temporalsdkclient.Client, taskQueue string) *Dispatcher {
	return &Dispatcher{tc: tc, taskQueue: taskQueue}
}

func (d *Dispatcher) Dispatch(ctx context.Context, runID uuid.UUID) error {
	_, err := d.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    WorkflowID(runID.String()),
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, WorkflowName, runID.String())
	return err
}
