package workflows

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/platform/jsoncol"
)

const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// WorkflowRun is the head row of a durable step run. Step progress lives in
// WorkflowStepEvent; this row only carries scheduling and the terminal result.
type WorkflowRun struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Kind        string       `gorm:"column:kind;not null;index" json:"kind"`
	Status      string       `gorm:"column:status;not null;index" json:"status"`
	Stage       string       `gorm:"column:stage;not null" json:"stage"`
	Payload     jsoncol.JSON `gorm:"column:payload" json:"payload,omitempty"`
	Result      jsoncol.JSON `gorm:"column:result" json:"result,omitempty"`
	Error       string       `gorm:"column:error;type:text" json:"error,omitempty"`
	ResumeAfter *time.Time   `gorm:"column:resume_after;index" json:"resumeAfter,omitempty"`
	LockedBy    string       `gorm:"column:locked_by" json:"lockedBy,omitempty"`
	LockedUntil *time.Time   `gorm:"column:locked_until;index" json:"lockedUntil,omitempty"`
	FinishedAt  *time.Time   `gorm:"column:finished_at" json:"finishedAt,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;index" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updatedAt"`
}

func (WorkflowRun) TableName() string { return "workflow_run" }

func (r WorkflowRun) Terminal() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusFailed
}
