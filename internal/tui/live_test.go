package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/stepflow/stepflow/pkg/workflow"
)

func staticSnapshot(phases []workflow.PhaseSnapshot) SnapshotFunc {
	return func() []workflow.PhaseSnapshot { return phases }
}

func TestLiveModel_ViewGlyphs(t *testing.T) {
	phases := []workflow.PhaseSnapshot{
		{
			Name: "setup",
			Tasks: []workflow.TaskSnapshot{
				{
					Descriptor: workflow.Descriptor{Phase: "setup", Name: "install", Order: 1.0},
					Record:     workflow.Record{State: workflow.StateSucceeded},
				},
				{
					Descriptor: workflow.Descriptor{Phase: "setup", Name: "migrate", Order: 2.0},
					Record:     workflow.Record{State: workflow.StateFailed, Message: "exit 1"},
				},
				{
					Descriptor: workflow.Descriptor{Phase: "setup", Name: "seed", Order: 3.0},
					Record:     workflow.Record{State: workflow.StatePending},
				},
			},
		},
	}

	m := newLiveModel(staticSnapshot(phases), 100*time.Millisecond)
	view := m.View()

	if !strings.Contains(view, "SETUP") {
		t.Errorf("view missing upper-cased phase header:\n%s", view)
	}
	if !strings.Contains(view, "✓") {
		t.Errorf("view missing success glyph:\n%s", view)
	}
	if !strings.Contains(view, "✗") {
		t.Errorf("view missing failure glyph:\n%s", view)
	}
	if !strings.Contains(view, "- seed") {
		t.Errorf("view missing pending dash:\n%s", view)
	}
}

func TestLiveModel_RefreshTakesNewSnapshot(t *testing.T) {
	state := workflow.StatePending
	snap := func() []workflow.PhaseSnapshot {
		return []workflow.PhaseSnapshot{
			{
				Name: "setup",
				Tasks: []workflow.TaskSnapshot{
					{
						Descriptor: workflow.Descriptor{Phase: "setup", Name: "install", Order: 1.0},
						Record:     workflow.Record{State: state},
					},
				},
			},
		}
	}

	m := newLiveModel(snap, 100*time.Millisecond)
	if !strings.Contains(m.View(), "- install") {
		t.Fatalf("initial view should show pending task:\n%s", m.View())
	}

	state = workflow.StateSucceeded
	updated, cmd := m.Update(refreshMsg{})
	m = updated.(liveModel)
	if cmd == nil {
		t.Error("refresh did not schedule the next poll")
	}
	if !strings.Contains(m.View(), "✓") {
		t.Errorf("view not updated after refresh:\n%s", m.View())
	}
}

func TestLiveModel_FinalizeQuits(t *testing.T) {
	m := newLiveModel(staticSnapshot(nil), 100*time.Millisecond)
	_, cmd := m.Update(finalizeMsg{})
	if cmd == nil {
		t.Fatal("finalize returned no command; expected quit")
	}
}

func TestLive_StopWithoutStart(t *testing.T) {
	l := NewLive(staticSnapshot(nil), 100*time.Millisecond)
	// Must not panic or hang.
	l.Stop()
	if l.Running() {
		t.Error("renderer reports running after Stop without Start")
	}
}

func TestLive_StartStop(t *testing.T) {
	var sink strings.Builder
	l := NewLive(staticSnapshot([]workflow.PhaseSnapshot{
		{
			Name: "setup",
			Tasks: []workflow.TaskSnapshot{
				{
					Descriptor: workflow.Descriptor{Phase: "setup", Name: "install", Order: 1.0},
					Record:     workflow.Record{State: workflow.StateSucceeded},
				},
			},
		},
	}), 20*time.Millisecond, WithOutput(&sink))

	l.Start()
	if !l.Running() {
		t.Fatal("renderer not running after Start")
	}
	// Second Start is a no-op.
	l.Start()

	time.Sleep(60 * time.Millisecond)
	l.Stop()
	if l.Running() {
		t.Error("renderer still running after Stop")
	}
}
