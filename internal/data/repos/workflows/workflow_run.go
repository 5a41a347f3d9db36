package workflows

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/vinoplan-backend/internal/domain"
	"github.com/yungbote/vinoplan-backend/internal/domain/workflows"
	"github.com/yungbote/vinoplan-backend/internal/platform/dbctx"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

type WorkflowRunRepo interface {
	Create(dbc dbctx.Context, run *types.WorkflowRun) (*types.WorkflowRun, error)
	// GetByID returns nil, nil when the run does not exist.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WorkflowRun, error)
	// ListRunnable returns non-terminal runs whose pacing window and lease have both lapsed.
	ListRunnable(dbc dbctx.Context, kind string, now time.Time, limit int) ([]*types.WorkflowRun, error)
	// ClaimLease takes the run for owner until now+lease. It fails when another owner holds a live lease.
	ClaimLease(dbc dbctx.Context, id uuid.UUID, owner string, now time.Time, lease time.Duration) (bool, error)
	ReleaseLease(dbc dbctx.Context, id uuid.UUID, owner string) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// UpdateLeased applies updates only while owner holds the run and it is not terminal.
	// It reports false when the lease was lost or the run already finished.
	UpdateLeased(dbc dbctx.Context, id uuid.UUID, owner string, updates map[string]interface{}) (bool, error)
}

type workflowRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkflowRunRepo(db *gorm.DB, baseLog *logger.Logger) WorkflowRunRepo {
	return &workflowRunRepo{
		db:  db,
		log: baseLog.With("repo", "WorkflowRunRepo"),
	}
}

func (r *workflowRunRepo) Create(dbc dbctx.Context, run *types.WorkflowRun) (*types.WorkflowRun, error) {
	if run == nil || run.Kind == "" {
		return nil, errors.New("workflow run requires a kind")
	}
	now := time.Now().UTC()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = workflows.RunStatusQueued
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now
	if err := dbc.Resolve(r.db).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *workflowRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WorkflowRun, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var run types.WorkflowRun
	if err := dbc.Resolve(r.db).Where("id = ?", id).Limit(1).Find(&run).Error; err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *workflowRunRepo) ListRunnable(dbc dbctx.Context, kind string, now time.Time, limit int) ([]*types.WorkflowRun, error) {
	if limit <= 0 {
		limit = 10
	}
	now = now.UTC()
	var out []*types.WorkflowRun
	q := dbc.Resolve(r.db).
		Where("status IN ?", []string{workflows.RunStatusQueued, workflows.RunStatusRunning}).
		Where("(resume_after IS NULL OR resume_after <= ?)", now).
		Where("(locked_until IS NULL OR locked_until <= ?)", now)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if err := q.Order("created_at ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *workflowRunRepo) ClaimLease(dbc dbctx.Context, id uuid.UUID, owner string, now time.Time, lease time.Duration) (bool, error) {
	if id == uuid.Nil || owner == "" {
		return false, nil
	}
	now = now.UTC()
	until := now.Add(lease)
	res := dbc.Resolve(r.db).
		Model(&types.WorkflowRun{}).
		Where("id = ? AND status IN ?", id, []string{workflows.RunStatusQueued, workflows.RunStatusRunning}).
		Where("(locked_until IS NULL OR locked_until <= ? OR locked_by = ?)", now, owner).
		Updates(map[string]interface{}{
			"locked_by":    owner,
			"locked_until": until,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *workflowRunRepo) ReleaseLease(dbc dbctx.Context, id uuid.UUID, owner string) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.Resolve(r.db).
		Model(&types.WorkflowRun{}).
		Where("id = ? AND locked_by = ?", id, owner).
		Updates(map[string]interface{}{
			"locked_by":    "",
			"locked_until": nil,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *workflowRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Resolve(r.db).
		Model(&types.WorkflowRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *workflowRunRepo) UpdateLeased(dbc dbctx.Context, id uuid.UUID, owner string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil || owner == "" {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := dbc.Resolve(r.db).
		Model(&types.WorkflowRun{}).
		Where("id = ? AND locked_by = ?", id, owner).
		Where("status IN ?", []string{workflows.RunStatusQueued, workflows.RunStatusRunning}).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
