package workflow

import (
	"context"
	"time"
)

// TaskState represents the current execution state of a task slot.
type TaskState string

const (
	// StatePending indicates the task is registered but has not started.
	StatePending TaskState = "pending"
	// StateRunning indicates the task is currently executing.
	StateRunning TaskState = "running"
	// StateSucceeded indicates the task completed successfully.
	StateSucceeded TaskState = "succeeded"
	// StateFailed indicates the task completed with a failure.
	StateFailed TaskState = "failed"
)

// Valid returns true if the state is a known value.
func (s TaskState) Valid() bool {
	switch s {
	case StatePending, StateRunning, StateSucceeded, StateFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the state is one a task never leaves
// except through a registry reset.
func (s TaskState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Descriptor identifies one task slot. A (Phase, Name) pair names exactly
// one slot; Order controls display position within the phase and nothing else.
type Descriptor struct {
	// Phase is the phase the task belongs to.
	Phase string `json:"phase"`
	// Name is the task's display name, unique within its phase.
	Name string `json:"name"`
	// Order is the display sort key within the phase. Ties keep
	// registration order.
	Order float64 `json:"order"`
}

// Record holds the execution state of one task slot.
type Record struct {
	// State is the current execution state.
	State TaskState `json:"state"`
	// Message carries the failure message for failed tasks. It may also
	// carry an informational message on success; display code decides
	// whether to show it.
	Message string `json:"message,omitempty"`
	// StartedAt is when the most recent invocation began.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// FinishedAt is when the most recent invocation completed.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration returns the elapsed time of the most recent completed
// invocation, or zero if the task has not finished.
func (r Record) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// Func is the canonical shape of a tracked task function. Implementations
// return an Outcome describing success or failure; use the adapter
// functions to lift plain bool- or error-returning functions.
type Func func(ctx context.Context) Outcome

// TaskSnapshot is a point-in-time copy of one task slot.
type TaskSnapshot struct {
	Descriptor
	Record
}

// PhaseSnapshot is a point-in-time copy of one phase and its tasks,
// already sorted for display.
type PhaseSnapshot struct {
	// Name is the phase name.
	Name string `json:"name"`
	// Tasks are the phase's tasks in ascending order value,
	// ties stable by registration sequence.
	Tasks []TaskSnapshot `json:"tasks"`
}
