package plan_warmup

import (
	"context"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/policy"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
	"github.com/yungbote/vinoplan-backend/internal/services"
)

// Warmer is the slice of the plan generator the warmup run needs.
type Warmer interface {
	Warm(ctx context.Context, req tasting.GenerationRequest) (*services.WarmOutcome, error)
}

type Pipeline struct {
	log      *logger.Logger
	policies *policy.Table
	warmer   Warmer
}

func New(baseLog *logger.Logger, policies *policy.Table, warmer Warmer) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", services.WarmupKind),
		policies: policies,
		warmer:   warmer,
	}
}

func (p *Pipeline) Kind() string { return services.WarmupKind }
