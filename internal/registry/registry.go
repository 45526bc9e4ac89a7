// Package registry holds the shared task state for one running workflow:
// which phases exist, which tasks belong to them, and how far each task
// has gotten. One registry instance backs one workflow; every mutation
// goes through a single mutex so that readers always see whole records.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/stepflow/stepflow/pkg/workflow"
)

// slotKey identifies a task slot within the registry.
type slotKey struct {
	phase string
	name  string
}

// slot is the registry's mutable entry for one task.
type slot struct {
	desc workflow.Descriptor
	rec  workflow.Record
	// seq is the registration sequence number, used to break order ties.
	seq int
}

// Registry is the process-shared task store. The zero value is not
// usable; create one with New.
type Registry struct {
	mu sync.Mutex

	// phaseOrder lists phase names in first-seen order.
	phaseOrder []string
	// phases maps phase name -> slot keys in registration order.
	phases map[string][]slotKey
	// slots maps slot key -> slot.
	slots map[slotKey]*slot
	// nextSeq is the next registration sequence number.
	nextSeq int

	// now is the clock, swappable in tests.
	now func() time.Time
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		phases: make(map[string][]slotKey),
		slots:  make(map[slotKey]*slot),
		now:    time.Now,
	}
}

// Register upserts a task slot. The first registration of a (phase, name)
// pair creates a pending record and fixes the slot's position in the
// phase; later registrations update the order value but keep any
// existing execution record. Safe to call once per function definition.
func (r *Registry) Register(phase, name string, order float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := slotKey{phase: phase, name: name}
	if existing, ok := r.slots[key]; ok {
		existing.desc.Order = order
		return
	}

	if _, ok := r.phases[phase]; !ok {
		r.phaseOrder = append(r.phaseOrder, phase)
	}
	r.phases[phase] = append(r.phases[phase], key)
	r.slots[key] = &slot{
		desc: workflow.Descriptor{Phase: phase, Name: name, Order: order},
		rec:  workflow.Record{State: workflow.StatePending},
		seq:  r.nextSeq,
	}
	r.nextSeq++
}

// Begin marks a task as running and stamps its start time. An unknown
// slot is ignored; registration happens at wrap time, so this only
// occurs on registry misuse and must not take down the caller's workflow.
func (r *Registry) Begin(phase, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[slotKey{phase: phase, name: name}]
	if !ok {
		return
	}
	started := r.now()
	s.rec = workflow.Record{
		State:     workflow.StateRunning,
		StartedAt: &started,
	}
}

// Complete records the outcome of a task invocation, moving the slot to
// its terminal state and stamping the finish time. Unknown slots are
// ignored, like Begin.
func (r *Registry) Complete(phase, name string, outcome workflow.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[slotKey{phase: phase, name: name}]
	if !ok {
		return
	}
	finished := r.now()
	s.rec.FinishedAt = &finished
	s.rec.Message = outcome.Message
	if outcome.Success {
		s.rec.State = workflow.StateSucceeded
	} else {
		s.rec.State = workflow.StateFailed
	}
}

// Snapshot returns a consistent copy of every phase and task. Phases
// appear in first-seen order; tasks within a phase in ascending order
// value, ties kept in registration order. The returned slices share no
// memory with the registry, so callers can render without holding it up.
func (r *Registry) Snapshot() []workflow.PhaseSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]workflow.PhaseSnapshot, 0, len(r.phaseOrder))
	for _, phase := range r.phaseOrder {
		keys := r.phases[phase]
		tasks := make([]workflow.TaskSnapshot, 0, len(keys))
		for _, key := range keys {
			s := r.slots[key]
			tasks = append(tasks, workflow.TaskSnapshot{
				Descriptor: s.desc,
				Record:     copyRecord(s.rec),
			})
		}
		// Registration order is already stable, so a stable sort on the
		// order value alone preserves tie order.
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Order < tasks[j].Order
		})
		out = append(out, workflow.PhaseSnapshot{Name: phase, Tasks: tasks})
	}
	return out
}

// Reset clears all phases, descriptors, and records.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.phaseOrder = nil
	r.phases = make(map[string][]slotKey)
	r.slots = make(map[slotKey]*slot)
	r.nextSeq = 0
}

// copyRecord duplicates a record, giving the copy its own timestamp
// storage so later mutations cannot reach a snapshot.
func copyRecord(rec workflow.Record) workflow.Record {
	out := rec
	if rec.StartedAt != nil {
		t := *rec.StartedAt
		out.StartedAt = &t
	}
	if rec.FinishedAt != nil {
		t := *rec.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
