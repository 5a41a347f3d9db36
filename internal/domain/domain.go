package domain

import (
	"github.com/yungbote/vinoplan-backend/internal/domain/plans"
	"github.com/yungbote/vinoplan-backend/internal/domain/workflows"
)

type TastingPlan = plans.TastingPlan
type PlanWine = plans.PlanWine
type PlanCacheEntry = plans.PlanCacheEntry
type GenerationLog = plans.GenerationLog

type WorkflowRun = workflows.WorkflowRun
type WorkflowStepEvent = workflows.WorkflowStepEvent

// Models lists every table AutoMigrate manages, parents first.
func Models() []any {
	return []any{
		&TastingPlan{},
		&PlanWine{},
		&PlanCacheEntry{},
		&GenerationLog{},
		&WorkflowRun{},
		&WorkflowStepEvent{},
	}
}
