package workflows

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/vinoplan-backend/internal/domain"
	"github.com/yungbote/vinoplan-backend/internal/platform/dbctx"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

type WorkflowStepEventRepo interface {
	// Append assigns the next seq for the run and inserts the event. Events are never updated.
	Append(dbc dbctx.Context, ev *types.WorkflowStepEvent) (*types.WorkflowStepEvent, error)
	ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.WorkflowStepEvent, error)
}

type workflowStepEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkflowStepEventRepo(db *gorm.DB, baseLog *logger.Logger) WorkflowStepEventRepo {
	return &workflowStepEventRepo{
		db:  db,
		log: baseLog.With("repo", "WorkflowStepEventRepo"),
	}
}

func (r *workflowStepEventRepo) Append(dbc dbctx.Context, ev *types.WorkflowStepEvent) (*types.WorkflowStepEvent, error) {
	if ev == nil || ev.RunID == uuid.Nil || ev.StepName == "" {
		return nil, errors.New("step event requires run id and step name")
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.NextRetryAt != nil {
		t := ev.NextRetryAt.UTC()
		ev.NextRetryAt = &t
	}
	err := dbc.Resolve(r.db).Transaction(func(tx *gorm.DB) error {
		var maxSeq int
		if err := tx.Model(&types.WorkflowStepEvent{}).
			Where("run_id = ?", ev.RunID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		ev.Seq = maxSeq + 1
		return tx.Create(ev).Error
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (r *workflowStepEventRepo) ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.WorkflowStepEvent, error) {
	var out []*types.WorkflowStepEvent
	if runID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Resolve(r.db).
		Where("run_id = ?", runID).
		Order("seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
