package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/vinoplan-backend/internal/data/db"
	"github.com/yungbote/vinoplan-backend/internal/data/repos"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

type Repos struct {
	TastingPlan       repos.TastingPlanRepo
	PlanCacheEntry    repos.PlanCacheEntryRepo
	GenerationLog     repos.GenerationLogRepo
	WorkflowRun       repos.WorkflowRunRepo
	WorkflowStepEvent repos.WorkflowStepEventRepo
	Tx                db.TxRunner
}

func wireRepos(theDB *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		TastingPlan:       repos.NewTastingPlanRepo(theDB, log),
		PlanCacheEntry:    repos.NewPlanCacheEntryRepo(theDB, log),
		GenerationLog:     repos.NewGenerationLogRepo(theDB, log),
		WorkflowRun:       repos.NewWorkflowRunRepo(theDB, log),
		WorkflowStepEvent: repos.NewWorkflowStepEventRepo(theDB, log),
		Tx:                db.NewTxRunner(theDB),
	}
}
