package workflows

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/platform/jsoncol"
)

const (
	StepStatusSucceeded = "succeeded"
	StepStatusRetrying  = "retrying"
	StepStatusExhausted = "exhausted"
)

// WorkflowStepEvent is one attempt of one step, appended before the run advances.
// A step is complete once a succeeded event exists for it; that result is never recomputed.
type WorkflowStepEvent struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	RunID       uuid.UUID    `gorm:"type:uuid;column:run_id;not null;uniqueIndex:idx_step_event_run_seq,priority:1" json:"runId"`
	Seq         int          `gorm:"column:seq;not null;uniqueIndex:idx_step_event_run_seq,priority:2" json:"seq"`
	StepName    string       `gorm:"column:step_name;not null;index" json:"stepName"`
	StepIndex   int          `gorm:"column:step_index;not null" json:"stepIndex"`
	Attempt     int          `gorm:"column:attempt;not null" json:"attempt"`
	Status      string       `gorm:"column:status;not null" json:"status"`
	Result      jsoncol.JSON `gorm:"column:result" json:"result,omitempty"`
	Error       string       `gorm:"column:error;type:text" json:"error,omitempty"`
	NextRetryAt *time.Time   `gorm:"column:next_retry_at" json:"nextRetryAt,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"createdAt"`
}

func (WorkflowStepEvent) TableName() string { return "workflow_step_event" }
