package worker

import (
	"context"
	"time"

	"github.com/yungbote/vinoplan-backend/internal/data/repos"
	"github.com/yungbote/vinoplan-backend/internal/jobs/steprun"
	"github.com/yungbote/vinoplan-backend/internal/platform/dbctx"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

// Worker drives step runs in process when no Temporal cluster is configured. It polls for
// runs whose pacing window and lease have lapsed and ticks them one after another.
type Worker struct {
	log      *logger.Logger
	runs     repos.WorkflowRunRepo
	engine   *steprun.Engine
	kind     string
	interval time.Duration
	batch    int
	now      func() time.Time
}

func New(baseLog *logger.Logger, runs repos.WorkflowRunRepo, engine *steprun.Engine, kind string, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Worker{
		log:      baseLog.With("component", "StepRunWorker"),
		runs:     runs,
		engine:   engine,
		kind:     kind,
		interval: interval,
		batch:    5,
		now:      time.Now,
	}
}

// Run blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("step run worker started", "kind", w.kind, "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("step run worker stopped")
			return nil
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll ticks every runnable run once and returns how many ticks succeeded.
func (w *Worker) poll(ctx context.Context) int {
	runs, err := w.runs.ListRunnable(dbctx.Context{Ctx: ctx}, w.kind, w.now(), w.batch)
	if err != nil {
		w.log.Warn("ListRunnable failed", "error", err)
		return 0
	}
	ticked := 0
	for _, run := range runs {
		if ctx.Err() != nil {
			return ticked
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.log.Error("step run tick panic", "run_id", run.ID, "panic", r)
				}
			}()
			res, err := w.engine.Tick(ctx, run.ID)
			if err != nil {
				w.log.Warn("step run tick failed", "run_id", run.ID, "error", err)
				return
			}
			ticked++
			if res.Terminal() {
				w.log.Info("step run finished", "run_id", run.ID, "status", res.Status, "stage", res.Stage)
			}
		}()
	}
	return ticked
}
