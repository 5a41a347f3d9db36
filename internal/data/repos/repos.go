package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/vinoplan-backend/internal/data/repos/plans"
	"github.com/yungbote/vinoplan-backend/internal/data/repos/workflows"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

type TastingPlanRepo = plans.TastingPlanRepo
type PlanCacheEntryRepo = plans.PlanCacheEntryRepo
type GenerationLogRepo = plans.GenerationLogRepo

type WorkflowRunRepo = workflows.WorkflowRunRepo
type WorkflowStepEventRepo = workflows.WorkflowStepEventRepo

func NewTastingPlanRepo(db *gorm.DB, baseLog *logger.Logger) TastingPlanRepo {
	return plans.NewTastingPlanRepo(db, baseLog)
}
func NewPlanCacheEntryRepo(db *gorm.DB, baseLog *logger.Logger) PlanCacheEntryRepo {
	return plans.NewPlanCacheEntryRepo(db, baseLog)
}
func NewGenerationLogRepo(db *gorm.DB, baseLog *logger.Logger) GenerationLogRepo {
	return plans.NewGenerationLogRepo(db, baseLog)
}

func NewWorkflowRunRepo(db *gorm.DB, baseLog *logger.Logger) WorkflowRunRepo {
	return workflows.NewWorkflowRunRepo(db, baseLog)
}
func NewWorkflowStepEventRepo(db *gorm.DB, baseLog *logger.Logger) WorkflowStepEventRepo {
	return workflows.NewWorkflowStepEventRepo(db, baseLog)
}
