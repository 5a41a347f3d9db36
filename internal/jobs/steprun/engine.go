package steprun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/data/db"
	"github.com/yungbote/vinoplan-backend/internal/data/repos"
	types "github.com/yungbote/vinoplan-backend/internal/domain"
	"github.com/yungbote/vinoplan-backend/internal/domain/workflows"
	"github.com/yungbote/vinoplan-backend/internal/observability"
	"github.com/yungbote/vinoplan-backend/internal/platform/dbctx"
	"github.com/yungbote/vinoplan-backend/internal/platform/envutil"
	"github.com/yungbote/vinoplan-backend/internal/platform/jsoncol"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

var ErrRunNotFound = errors.New("workflow run not found")

var errLeaseLost = errors.New("steprun: lease lost")

type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	// Pacing is the pause after a step whose Pace func returned true.
	Pacing time.Duration
	// Lease bounds how long one driver may hold a run without renewing. A running step
	// renews it every Lease/3.
	Lease time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 10 * time.Second,
		Pacing:         2 * time.Second,
		Lease:          2 * time.Minute,
	}
}

// LoadPolicy reads WARMUP_MAX_ATTEMPTS, WARMUP_INITIAL_BACKOFF_SECONDS and WARMUP_PACING_SECONDS.
func LoadPolicy() Policy {
	p := DefaultPolicy()
	p.MaxAttempts = envutil.Int("WARMUP_MAX_ATTEMPTS", p.MaxAttempts)
	p.InitialBackoff = envutil.Seconds("WARMUP_INITIAL_BACKOFF_SECONDS", int(p.InitialBackoff/time.Second))
	p.Pacing = envutil.Seconds("WARMUP_PACING_SECONDS", int(p.Pacing/time.Second))
	return p
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = 0
	}
	if p.Pacing < 0 {
		p.Pacing = 0
	}
	if p.Lease <= 0 {
		p.Lease = d.Lease
	}
	return p
}

// TickResult is what a driver needs to decide when to tick again.
type TickResult struct {
	RunID       string     `json:"run_id"`
	Status      string     `json:"status"`
	Stage       string     `json:"stage,omitempty"`
	Error       string     `json:"error,omitempty"`
	ResumeAfter *time.Time `json:"resume_after,omitempty"`
	// Busy is set when another driver holds the lease.
	Busy bool `json:"busy,omitempty"`
}

func (r TickResult) Terminal() bool {
	return r.Status == workflows.RunStatusSucceeded || r.Status == workflows.RunStatusFailed
}

type Engine struct {
	log      *logger.Logger
	runs     repos.WorkflowRunRepo
	events   repos.WorkflowStepEventRepo
	tx       db.TxRunner
	registry *Registry
	policy   Policy
	owner    string
	now      func() time.Time
}

func NewEngine(
	baseLog *logger.Logger,
	runs repos.WorkflowRunRepo,
	events repos.WorkflowStepEventRepo,
	tx db.TxRunner,
	registry *Registry,
	policy Policy,
	now func() time.Time,
) *Engine {
	if now == nil {
		now = time.Now
	}
	host, _ := os.Hostname()
	return &Engine{
		log:      baseLog.With("component", "StepRunEngine"),
		runs:     runs,
		events:   events,
		tx:       tx,
		registry: registry,
		policy:   policy.normalized(),
		owner:    fmt.Sprintf("%s/%s", host, uuid.NewString()[:8]),
		now:      now,
	}
}

func (e *Engine) Policy() Policy { return e.policy }

// Start creates a queued run of kind. It does not execute anything.
func (e *Engine) Start(ctx context.Context, kind string, payload any) (*types.WorkflowRun, error) {
	if _, ok := e.registry.Get(kind); !ok {
		return nil, fmt.Errorf("steprun: no definition registered for kind=%s", kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("steprun: encode payload: %w", err)
	}
	now := e.now().UTC()
	return e.runs.Create(dbctx.Context{Ctx: ctx}, &types.WorkflowRun{
		Kind:      kind,
		Status:    workflows.RunStatusQueued,
		Stage:     "queued",
		Payload:   jsoncol.JSON(raw),
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Snapshot loads a run and replays its step log. It returns ErrRunNotFound for unknown ids.
func (e *Engine) Snapshot(ctx context.Context, runID uuid.UUID) (*Snapshot, error) {
	dbc := dbctx.Context{Ctx: ctx}
	run, err := e.runs.GetByID(dbc, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	events, err := e.events.ListByRun(dbc, runID)
	if err != nil {
		return nil, err
	}
	return replay(run, events), nil
}

// Tick advances a run as far as it can without waiting. It runs steps back to back until
// one fails, one asks for pacing, or the run finishes. A failed step never returns an
// error here; the failure is recorded and the run either waits for its retry or fails.
func (e *Engine) Tick(ctx context.Context, runID uuid.UUID) (TickResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	run, err := e.runs.GetByID(dbc, runID)
	if err != nil {
		return TickResult{RunID: runID.String()}, err
	}
	if run == nil {
		return TickResult{RunID: runID.String()}, ErrRunNotFound
	}
	if run.Terminal() {
		return resultOf(run), nil
	}
	now := e.now().UTC()
	if run.ResumeAfter != nil && run.ResumeAfter.After(now) {
		return resultOf(run), nil
	}

	claimed, err := e.runs.ClaimLease(dbc, run.ID, e.owner, now, e.policy.Lease)
	if err != nil {
		return resultOf(run), err
	}
	if !claimed {
		res := resultOf(run)
		res.Busy = true
		return res, nil
	}
	defer func() {
		if err := e.runs.ReleaseLease(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, run.ID, e.owner); err != nil {
			e.log.Warn("release lease failed", "run_id", run.ID, "error", err)
		}
	}()

	def, ok := e.registry.Get(run.Kind)
	if !ok {
		return e.failRun(ctx, run, "dispatch", fmt.Sprintf("no definition registered for kind=%s", run.Kind))
	}
	steps, err := def.Steps(run.Payload)
	if err != nil {
		return e.failRun(ctx, run, "plan", err.Error())
	}
	if len(steps) == 0 {
		return e.finish(ctx, run, json.RawMessage("null"))
	}
	events, err := e.events.ListByRun(dbc, run.ID)
	if err != nil {
		return resultOf(run), err
	}
	snap := replay(run, events)
	if snap.Exhausted != nil {
		return e.failRun(ctx, run, snap.Exhausted.StepName, exhaustedMessage(snap.Exhausted))
	}

	for {
		if err := ctx.Err(); err != nil {
			return resultOf(run), err
		}
		idx := snap.next(steps)
		if idx == len(steps) {
			return e.finish(ctx, run, snap.Completed[steps[len(steps)-1].Name])
		}
		claimed, err := e.runs.ClaimLease(dbc, run.ID, e.owner, e.now().UTC(), e.policy.Lease)
		if err != nil {
			return resultOf(run), err
		}
		if !claimed {
			return e.leaseLost(ctx, run)
		}
		if run.Status != workflows.RunStatusRunning || run.Stage != steps[idx].Name {
			ok, err := e.runs.UpdateLeased(dbc, run.ID, e.owner, map[string]interface{}{
				"status": workflows.RunStatusRunning,
				"stage":  steps[idx].Name,
			})
			if err != nil {
				return resultOf(run), err
			}
			if !ok {
				return e.leaseLost(ctx, run)
			}
			run.Status = workflows.RunStatusRunning
			run.Stage = steps[idx].Name
		}

		res, advance, err := e.attempt(ctx, run, steps, idx, snap)
		if err != nil || !advance {
			return res, err
		}
	}
}

// attempt runs one attempt of steps[idx] and durably records its outcome. advance is true
// when the next step may start immediately.
func (e *Engine) attempt(ctx context.Context, run *types.WorkflowRun, steps []Step, idx int, snap *Snapshot) (TickResult, bool, error) {
	step := steps[idx]
	attemptNo := snap.Failures[step.Name] + 1
	started := time.Now()

	stepCtx, stop := e.heartbeat(ctx, run.ID)
	out, runErr := safeRun(stepCtx, step, snap.Completed)
	stop()
	var raw json.RawMessage
	if runErr == nil {
		b, err := json.Marshal(out)
		if err != nil {
			runErr = fmt.Errorf("encode %s result: %w", step.Name, err)
		} else {
			raw = b
		}
	}
	// A cancelled context is the driver shutting down, not a step failure. The attempt is
	// not recorded and will run again on the next tick.
	if runErr != nil && ctx.Err() != nil {
		return resultOf(run), false, ctx.Err()
	}
	if errors.Is(context.Cause(stepCtx), errLeaseLost) {
		res, err := e.leaseLost(ctx, run)
		return res, false, err
	}

	now := e.now().UTC()
	ev := &types.WorkflowStepEvent{
		RunID:     run.ID,
		StepName:  step.Name,
		StepIndex: idx,
		Attempt:   attemptNo,
		CreatedAt: now,
	}
	updates := map[string]interface{}{}
	advance := false

	switch {
	case runErr == nil:
		ev.Status = workflows.StepStatusSucceeded
		ev.Result = jsoncol.JSON(raw)
		last := idx == len(steps)-1
		if !last && step.Pace != nil && step.Pace(raw) && e.policy.Pacing > 0 {
			resume := now.Add(e.policy.Pacing)
			updates["resume_after"] = resume
			run.ResumeAfter = &resume
		} else {
			updates["resume_after"] = nil
			run.ResumeAfter = nil
			advance = true
		}
	case attemptNo < e.policy.MaxAttempts:
		ev.Status = workflows.StepStatusRetrying
		ev.Error = runErr.Error()
		retryAt := now.Add(Backoff(e.policy.InitialBackoff, attemptNo))
		ev.NextRetryAt = &retryAt
		updates["resume_after"] = retryAt
		run.ResumeAfter = &retryAt
	default:
		ev.Status = workflows.StepStatusExhausted
		ev.Error = runErr.Error()
		updates["status"] = workflows.RunStatusFailed
		updates["error"] = exhaustedMessage(ev)
		updates["resume_after"] = nil
		updates["finished_at"] = now
		run.Status = workflows.RunStatusFailed
		run.Error = exhaustedMessage(ev)
		run.ResumeAfter = nil
		run.FinishedAt = &now
	}

	// The event and the run update land together so a crash cannot leave a recorded
	// success with a stale schedule, or the reverse. Neither lands once the lease is gone.
	err := e.tx.InTx(ctx, func(dbc dbctx.Context) error {
		ok, err := e.runs.UpdateLeased(dbc, run.ID, e.owner, updates)
		if err != nil {
			return err
		}
		if !ok {
			return errLeaseLost
		}
		_, err = e.events.Append(dbc, ev)
		return err
	})
	if errors.Is(err, errLeaseLost) {
		res, err := e.leaseLost(ctx, run)
		return res, false, err
	}
	if err != nil {
		return resultOf(run), false, fmt.Errorf("record step %s: %w", step.Name, err)
	}

	observability.Current().IncWarmupStep(ev.Status)
	observability.Current().ObserveActivity(step.Name, run.Kind, ev.Status, time.Since(started))

	switch ev.Status {
	case workflows.StepStatusSucceeded:
		snap.Completed[step.Name] = raw
		snap.Order = append(snap.Order, step.Name)
		delete(snap.Failures, step.Name)
		snap.Events = append(snap.Events, ev)
	case workflows.StepStatusRetrying:
		e.log.Warn("step attempt failed; retry scheduled",
			"run_id", run.ID, "step", step.Name, "attempt", attemptNo, "retry_at", ev.NextRetryAt, "error", runErr)
	case workflows.StepStatusExhausted:
		e.log.Error("step exhausted its attempts; run failed",
			"run_id", run.ID, "step", step.Name, "attempts", attemptNo, "error", runErr)
	}
	return resultOf(run), advance, nil
}

func (e *Engine) finish(ctx context.Context, run *types.WorkflowRun, result json.RawMessage) (TickResult, error) {
	now := e.now().UTC()
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	ok, err := e.runs.UpdateLeased(dbctx.Context{Ctx: ctx}, run.ID, e.owner, map[string]interface{}{
		"status":       workflows.RunStatusSucceeded,
		"stage":        "done",
		"result":       jsoncol.JSON(result),
		"resume_after": nil,
		"finished_at":  now,
	})
	if err != nil {
		return resultOf(run), err
	}
	if !ok {
		return e.leaseLost(ctx, run)
	}
	run.Status = workflows.RunStatusSucceeded
	run.Stage = "done"
	run.Result = jsoncol.JSON(result)
	run.ResumeAfter = nil
	run.FinishedAt = &now
	e.log.Info("run succeeded", "run_id", run.ID, "kind", run.Kind)
	return resultOf(run), nil
}

func (e *Engine) failRun(ctx context.Context, run *types.WorkflowRun, stage, msg string) (TickResult, error) {
	now := e.now().UTC()
	ok, err := e.runs.UpdateLeased(dbctx.Context{Ctx: ctx}, run.ID, e.owner, map[string]interface{}{
		"status":       workflows.RunStatusFailed,
		"stage":        stage,
		"error":        msg,
		"resume_after": nil,
		"finished_at":  now,
	})
	if err != nil {
		return resultOf(run), err
	}
	if !ok {
		return e.leaseLost(ctx, run)
	}
	run.Status = workflows.RunStatusFailed
	run.Stage = stage
	run.Error = msg
	run.ResumeAfter = nil
	run.FinishedAt = &now
	e.log.Error("run failed", "run_id", run.ID, "kind", run.Kind, "stage", stage, "error", msg)
	return resultOf(run), nil
}

// Abandon fails a run that will never be driven, such as one whose dispatch failed.
// Finished runs are returned as they are and runs another driver holds come back Busy.
func (e *Engine) Abandon(ctx context.Context, runID uuid.UUID, msg string) (TickResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	run, err := e.runs.GetByID(dbc, runID)
	if err != nil {
		return TickResult{RunID: runID.String()}, err
	}
	if run == nil {
		return TickResult{RunID: runID.String()}, ErrRunNotFound
	}
	if run.Terminal() {
		return resultOf(run), nil
	}
	claimed, err := e.runs.ClaimLease(dbc, run.ID, e.owner, e.now().UTC(), e.policy.Lease)
	if err != nil {
		return resultOf(run), err
	}
	if !claimed {
		res := resultOf(run)
		res.Busy = true
		return res, nil
	}
	defer func() {
		if err := e.runs.ReleaseLease(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, run.ID, e.owner); err != nil {
			e.log.Warn("release lease failed", "run_id", run.ID, "error", err)
		}
	}()
	return e.failRun(ctx, run, "dispatch", msg)
}

// heartbeat renews the lease while a step runs. The returned context is cancelled with
// errLeaseLost once another driver owns the run or the run finished elsewhere.
func (e *Engine) heartbeat(ctx context.Context, runID uuid.UUID) (context.Context, func()) {
	hctx, cancel := context.WithCancelCause(ctx)
	every := e.policy.Lease / 3
	if every <= 0 {
		every = e.policy.Lease
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-hctx.Done():
				return
			case <-t.C:
				ok, err := e.runs.ClaimLease(dbctx.Context{Ctx: hctx}, runID, e.owner, e.now().UTC(), e.policy.Lease)
				if err != nil {
					e.log.Warn("lease renewal failed", "run_id", runID, "error", err)
					continue
				}
				if !ok {
					cancel(errLeaseLost)
					return
				}
			}
		}
	}()
	return hctx, func() {
		close(done)
		wg.Wait()
		cancel(nil)
	}
}

// leaseLost reports the run as it now stands. Nothing from this tick is recorded.
func (e *Engine) leaseLost(ctx context.Context, run *types.WorkflowRun) (TickResult, error) {
	e.log.Warn("lease lost; leaving the run to its current driver", "run_id", run.ID, "stage", run.Stage)
	if fresh, err := e.runs.GetByID(dbctx.Context{Ctx: ctx}, run.ID); err == nil && fresh != nil {
		run = fresh
	}
	res := resultOf(run)
	res.Busy = true
	return res, nil
}

func safeRun(ctx context.Context, step Step, done Results) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in step %s: %v", step.Name, r)
		}
	}()
	if step.Run == nil {
		return nil, nil
	}
	return step.Run(ctx, done)
}

func exhaustedMessage(ev *types.WorkflowStepEvent) string {
	return fmt.Sprintf("step %s exhausted after %d attempts: %s", ev.StepName, ev.Attempt, ev.Error)
}

func resultOf(run *types.WorkflowRun) TickResult {
	return TickResult{
		RunID:       run.ID.String(),
		Status:      run.Status,
		Stage:       run.Stage,
		Error:       run.Error,
		ResumeAfter: run.ResumeAfter,
	}
}
