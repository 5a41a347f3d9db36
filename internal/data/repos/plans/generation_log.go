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

type GenerationLogRepo interface {
	Insert(dbc dbctx.Context, userID, planID uuid.UUID, at time.Time) error
	CountSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int, error)
}

type generationLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationLogRepo(db *gorm.DB, baseLog *logger.Logger) GenerationLogRepo {
	return &generationLogRepo{
		db:  db,
		log: baseLog.With("repo", "GenerationLogRepo"),
	}
}

func (r *generationLogRepo) Insert(dbc dbctx.Context, userID, planID uuid.UUID, at time.Time) error {
	if userID == uuid.Nil {
		return errors.New("generation log requires a user id")
	}
	row := &types.GenerationLog{
		ID:        uuid.New(),
		UserID:    userID,
		PlanID:    planID,
		CreatedAt: at.UTC(),
	}
	return dbc.Resolve(r.db).Create(row).Error
}

func (r *generationLogRepo) CountSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int, error) {
	if userID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := dbc.Resolve(r.db).
		Model(&types.GenerationLog{}).
		Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
