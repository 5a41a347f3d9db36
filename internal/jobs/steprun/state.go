package steprun

import (
	"encoding/json"
	"time"

	types "github.com/yungbote/vinoplan-backend/internal/domain"
	"github.com/yungbote/vinoplan-backend/internal/domain/workflows"
)

// Snapshot is a run plus what its step log says about it.
type Snapshot struct {
	Run       *types.WorkflowRun
	Events    []*types.WorkflowStepEvent
	Completed Results
	// Order lists completed step names in completion order.
	Order []string
	// Failures counts failed attempts per step that has not completed.
	Failures map[string]int
	// Exhausted is the event that stopped the run, if any.
	Exhausted *types.WorkflowStepEvent
	// Retry is the latest retry event of the step currently waiting, if any.
	Retry *types.WorkflowStepEvent
}

func replay(run *types.WorkflowRun, events []*types.WorkflowStepEvent) *Snapshot {
	s := &Snapshot{
		Run:       run,
		Events:    events,
		Completed: Results{},
		Failures:  map[string]int{},
	}
	for _, ev := range events {
		if ev == nil {
			continue
		}
		switch ev.Status {
		case workflows.StepStatusSucceeded:
			if _, seen := s.Completed[ev.StepName]; seen {
				continue
			}
			raw := json.RawMessage(ev.Result)
			if len(raw) == 0 {
				raw = json.RawMessage("null")
			}
			s.Completed[ev.StepName] = raw
			s.Order = append(s.Order, ev.StepName)
			delete(s.Failures, ev.StepName)
			if s.Retry != nil && s.Retry.StepName == ev.StepName {
				s.Retry = nil
			}
		case workflows.StepStatusRetrying:
			s.Failures[ev.StepName]++
			s.Retry = ev
		case workflows.StepStatusExhausted:
			s.Failures[ev.StepName]++
			s.Exhausted = ev
			s.Retry = nil
		}
	}
	return s
}

// next returns the index of the first step without a recorded success, or len(steps).
func (s *Snapshot) next(steps []Step) int {
	for i, st := range steps {
		if _, ok := s.Completed[st.Name]; !ok {
			return i
		}
	}
	return len(steps)
}

// Backoff is the wait after failed attempt n (1-based): initial * 2^(n-1).
func Backoff(initial time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := initial
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
