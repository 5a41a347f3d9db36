package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/domain/workflows"
	"github.com/yungbote/vinoplan-backend/internal/jobs/steprun"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

const (
	WarmupKind           = "plan_warmup"
	WarmupEnumerateStep  = "enumerate"
	WarmupSummaryStep    = "summary"
	warmupGeneratePrefix = "generate-"
)

var ErrWarmupNotFound = errors.New("warmup run not found")

// WarmupStepResult is the recorded outcome of one generate-{occasion}-{foodIndex} step.
type WarmupStepResult struct {
	Step        string     `json:"step"`
	Occasion    string     `json:"occasion"`
	FoodIndex   int        `json:"foodIndex"`
	FoodPairing string     `json:"foodPairing"`
	Status      WarmStatus `json:"status"`
	PlanID      uuid.UUID  `json:"planId"`
}

type WarmupSummary struct {
	Total     int                `json:"total"`
	Generated int                `json:"generated"`
	Skipped   int                `json:"skipped"`
	Results   []WarmupStepResult `json:"results"`
}

// SummarizeWarmup counts outcomes. total is the enumerated combination count, which is
// larger than len(results) while a run is in progress.
func SummarizeWarmup(total int, results []WarmupStepResult) WarmupSummary {
	s := WarmupSummary{Total: total, Results: make([]WarmupStepResult, 0, len(results))}
	for _, r := range results {
		switch r.Status {
		case WarmGenerated:
			s.Generated++
		case WarmAlreadyCached:
			s.Skipped++
		}
		s.Results = append(s.Results, r)
	}
	return s
}

type WarmupTrigger struct {
	InstanceID uuid.UUID `json:"instanceId"`
	Status     string    `json:"status"`
}

type WarmupStatus struct {
	InstanceID uuid.UUID `json:"instanceId"`
	Status     string    `json:"status"`
	Stage      string    `json:"stage"`
	// Partial is true until the summary step has run.
	Partial     bool           `json:"partial"`
	Summary     *WarmupSummary `json:"summary"`
	FailedStep  string         `json:"failedStep,omitempty"`
	Error       string         `json:"error,omitempty"`
	ResumeAfter *time.Time     `json:"resumeAfter,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	FinishedAt  *time.Time     `json:"finishedAt,omitempty"`
}

// WarmupDispatcher hands a new run to a durable driver. With no dispatcher the local
// worker finds the run by polling.
type WarmupDispatcher interface {
	Dispatch(ctx context.Context, runID uuid.UUID) error
}

type WarmupService interface {
	// Trigger creates a run and returns immediately.
	Trigger(ctx context.Context) (*WarmupTrigger, error)
	Status(ctx context.Context, id uuid.UUID) (*WarmupStatus, error)
}

type warmupService struct {
	log        *logger.Logger
	engine     *steprun.Engine
	dispatcher WarmupDispatcher
}

func NewWarmupService(baseLog *logger.Logger, engine *steprun.Engine, dispatcher WarmupDispatcher) WarmupService {
	return &warmupService{
		log:        baseLog.With("service", "WarmupService"),
		engine:     engine,
		dispatcher: dispatcher,
	}
}

func (s *warmupService) Trigger(ctx context.Context) (*WarmupTrigger, error) {
	run, err := s.engine.Start(ctx, WarmupKind, map[string]any{"requestedAt": time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("start warmup run: %w", err)
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, run.ID); err != nil {
			// Nothing will drive the run, so it is failed rather than left queued. A later
			// trigger starts a fresh run that skips every combination already cached.
			s.log.Error("warmup dispatch failed", "run_id", run.ID, "error", err)
			if _, aerr := s.engine.Abandon(context.WithoutCancel(ctx), run.ID, "dispatch failed: "+err.Error()); aerr != nil {
				s.log.Error("abandon undispatched warmup run failed", "run_id", run.ID, "error", aerr)
			}
			return nil, fmt.Errorf("dispatch warmup run: %w", err)
		}
	}
	s.log.Info("warmup run started", "run_id", run.ID)
	return &WarmupTrigger{InstanceID: run.ID, Status: "started"}, nil
}

func (s *warmupService) Status(ctx context.Context, id uuid.UUID) (*WarmupStatus, error) {
	snap, err := s.engine.Snapshot(ctx, id)
	if errors.Is(err, steprun.ErrRunNotFound) {
		return nil, ErrWarmupNotFound
	}
	if err != nil {
		return nil, err
	}
	if snap.Run.Kind != WarmupKind {
		return nil, ErrWarmupNotFound
	}
	run := snap.Run
	out := &WarmupStatus{
		InstanceID:  run.ID,
		Status:      run.Status,
		Stage:       run.Stage,
		ResumeAfter: run.ResumeAfter,
		CreatedAt:   run.CreatedAt,
		FinishedAt:  run.FinishedAt,
	}

	var final WarmupSummary
	if ok, err := snap.Completed.Decode(WarmupSummaryStep, &final); err != nil {
		return nil, err
	} else if ok {
		out.Summary = &final
	} else {
		partial, err := partialSummary(snap)
		if err != nil {
			return nil, err
		}
		out.Summary = partial
		out.Partial = true
	}

	if run.Status == workflows.RunStatusFailed {
		out.Error = run.Error
		if snap.Exhausted != nil {
			out.FailedStep = snap.Exhausted.StepName
			out.Error = fmt.Errorf("%w: %s", tasting.ErrWorkflowStepExhausted, run.Error).Error()
		}
	}
	return out, nil
}

func partialSummary(snap *steprun.Snapshot) (*WarmupSummary, error) {
	var combos []json.RawMessage
	if _, err := snap.Completed.Decode(WarmupEnumerateStep, &combos); err != nil {
		return nil, err
	}
	results := make([]WarmupStepResult, 0, len(snap.Order))
	for _, name := range snap.Order {
		if !strings.HasPrefix(name, warmupGeneratePrefix) {
			continue
		}
		var r WarmupStepResult
		if _, err := snap.Completed.Decode(name, &r); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	sum := SummarizeWarmup(len(combos), results)
	return &sum, nil
}

// WarmupStepName names the step for one combination.
func WarmupStepName(occasion tasting.Occasion, foodIndex int) string {
	return fmt.Sprintf("%s%s-%d", warmupGeneratePrefix, occasion, foodIndex)
}
