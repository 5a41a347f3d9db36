package warmuprun

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/vinoplan-backend/internal/jobs/steprun"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

type Activities struct {
	Log    *logger.Logger
	Engine *steprun.Engine
}

func (a *Activities) Tick(ctx context.Context, runID string) (steprun.TickResult, error) {
	res := steprun.TickResult{RunID: runID}
	if a == nil || a.Engine == nil {
		return res, temporal.NewNonRetryableApplicationError("warmuprun: activity not configured", "Misconfigured", nil)
	}
	id, err := uuid.Parse(runID)
	if err != nil || id == uuid.Nil {
		return res, temporal.NewNonRetryableApplicationError("warmuprun: invalid run id", "InvalidInput", err)
	}

	stop := startHeartbeat(ctx)
	defer stop()

	res, err = a.Engine.Tick(ctx, id)
	if errors.Is(err, steprun.ErrRunNotFound) {
		return res, temporal.NewNonRetryableApplicationError("warmuprun: run not found", "NotFound", err)
	}
	if err != nil && a.Log != nil {
		a.Log.Warn("warmup tick failed", "run_id", runID, "error", err)
	}
	return res, err
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
