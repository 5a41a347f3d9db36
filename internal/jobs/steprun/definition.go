// Package steprun drives durable step workflows. Every step attempt is appended to
// workflow_step_event before the run advances; a tick replays that log, skips steps
// that already succeeded and runs the next one.
package steprun

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Results maps completed step names to their recorded results.
type Results map[string]json.RawMessage

// Decode unmarshals the recorded result of step into out. It reports false when the step
// has not completed.
func (r Results) Decode(step string, out any) (bool, error) {
	raw, ok := r[step]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode %s result: %w", step, err)
	}
	return true, nil
}

type Step struct {
	Name string
	// Run executes one attempt. done holds the results of every step that completed before it.
	Run func(ctx context.Context, done Results) (any, error)
	// Pace reports whether the run must wait the pacing interval before the next step.
	// Nil means never. It is not consulted after the last step.
	Pace func(result json.RawMessage) bool
}

// Definition is one kind of run. Steps must be deterministic for a given payload so a
// resumed run sees the same names in the same order.
type Definition interface {
	Kind() string
	Steps(payload []byte) ([]Step, error)
}

type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

func (r *Registry) Register(d Definition) error {
	if d == nil {
		return fmt.Errorf("nil definition")
	}
	kind := d.Kind()
	if kind == "" {
		return fmt.Errorf("definition Kind() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[kind]; exists {
		return fmt.Errorf("definition already registered for kind=%s", kind)
	}
	r.defs[kind] = d
	return nil
}

func (r *Registry) Get(kind string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[kind]
	return d, ok
}
