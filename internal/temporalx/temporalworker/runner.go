package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/vinoplan-backend/internal/jobs/steprun"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
	"github.com/yungbote/vinoplan-backend/internal/temporalx"
	"github.com/yungbote/vinoplan-backend/internal/temporalx/warmuprun"
)

type Runner struct {
	log    *logger.Logger
	tc     temporalsdkclient.Client
	cfg    temporalx.Config
	engine *steprun.Engine
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, engine *steprun.Engine) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if engine == nil {
		return nil, fmt.Errorf("temporal worker missing step engine")
	}
	return &Runner{
		log:    log.With("component", "TemporalWorker"),
		tc:     tc,
		cfg:    cfg,
		engine: engine,
	}, nil
}

// Run starts the worker, retrying until WorkerStartWait, and blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	deadline := time.Now().Add(r.cfg.WorkerStartWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			<-ctx.Done()
			w.Stop()
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		notFound := errors.As(startErr, &nfe)
		if notFound && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.log, r.cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}
		if r.cfg.WorkerStartWait <= 0 || time.Now().After(deadline) {
			if notFound {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}

		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", r.cfg.TaskQueue, "attempt", attempt, "error", startErr)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(temporalx.ClampBackoff(r.cfg.DialBackoff, r.cfg.DialBackoffMax, attempt)):
		}
	}
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := r.cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	acts := &warmuprun.Activities{Log: r.log, Engine: r.engine}
	w.RegisterWorkflowWithOptions(warmuprun.Workflow, workflow.RegisterOptions{Name: warmuprun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Tick, activity.RegisterOptions{Name: warmuprun.ActivityTick})
	return w
}
