package plans

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/vinoplan-backend/internal/domain"
	"github.com/yungbote/vinoplan-backend/internal/platform/dbctx"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

type TastingPlanRepo interface {
	// Insert writes the plan and its wines as one unit: all rows or none.
	Insert(dbc dbctx.Context, plan *types.TastingPlan) (*types.TastingPlan, error)
	// FindByID returns nil, nil when the plan does not exist.
	FindByID(dbc dbctx.Context, id uuid.UUID) (*types.TastingPlan, error)
}

type tastingPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTastingPlanRepo(db *gorm.DB, baseLog *logger.Logger) TastingPlanRepo {
	return &tastingPlanRepo{
		db:  db,
		log: baseLog.With("repo", "TastingPlanRepo"),
	}
}

func (r *tastingPlanRepo) Insert(dbc dbctx.Context, plan *types.TastingPlan) (*types.TastingPlan, error) {
	if plan == nil {
		return nil, errors.New("nil plan")
	}
	now := time.Now().UTC()
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	for i := range plan.Wines {
		if plan.Wines[i].ID == uuid.Nil {
			plan.Wines[i].ID = uuid.New()
		}
		plan.Wines[i].PlanID = plan.ID
		if plan.Wines[i].CreatedAt.IsZero() {
			plan.Wines[i].CreatedAt = now
		}
	}

	// A nested Transaction becomes a savepoint when dbc already carries one.
	err := dbc.Resolve(r.db).Transaction(func(tx *gorm.DB) error {
		wines := plan.Wines
		if err := tx.Omit("Wines").Create(plan).Error; err != nil {
			return err
		}
		if len(wines) > 0 {
			if err := tx.Create(&wines).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *tastingPlanRepo) FindByID(dbc dbctx.Context, id uuid.UUID) (*types.TastingPlan, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var plan types.TastingPlan
	err := dbc.Resolve(r.db).
		Preload("Wines", func(db *gorm.DB) *gorm.DB { return db.Order("tasting_order ASC") }).
		Where("id = ?", id).
		Limit(1).
		Find(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == uuid.Nil {
		return nil, nil
	}
	return &plan, nil
}
