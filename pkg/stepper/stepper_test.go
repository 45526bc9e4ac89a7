package stepper

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"

	"github.com/stepflow/stepflow/pkg/workflow"
)

func init() {
	color.NoColor = true
}

// fakeRenderer records lifecycle calls in place of the terminal display.
type fakeRenderer struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (f *fakeRenderer) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
}

func (f *fakeRenderer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func newTestTracker(buf *bytes.Buffer) (*Tracker, *fakeRenderer) {
	r := &fakeRenderer{}
	return New(WithOutput(buf), WithRenderer(r)), r
}

func firstTask(t *testing.T, tr *Tracker) workflow.TaskSnapshot {
	t.Helper()
	snap := tr.Snapshot()
	if len(snap) == 0 || len(snap[0].Tasks) == 0 {
		t.Fatal("snapshot is empty")
	}
	return snap[0].Tasks[0]
}

func TestStep_RegistersAtBindTime(t *testing.T) {
	tr, _ := newTestTracker(&bytes.Buffer{})
	tr.Step("init", "A", 1.0, workflow.BoolFunc(func(ctx context.Context) bool { return true }))

	task := firstTask(t, tr)
	if task.State != workflow.StatePending {
		t.Errorf("state before invocation = %v, want pending", task.State)
	}
	if task.Phase != "init" || task.Name != "A" || task.Order != 1.0 {
		t.Errorf("descriptor = %+v, want init/A/1.0", task.Descriptor)
	}
}

func TestStep_BoolTrue(t *testing.T) {
	tr, _ := newTestTracker(&bytes.Buffer{})
	fn := tr.Step("init", "A", 1.0, workflow.BoolFunc(func(ctx context.Context) bool { return true }))

	out := fn(context.Background())
	if !out.Success {
		t.Fatalf("outcome = %+v, want success", out)
	}

	task := firstTask(t, tr)
	if task.State != workflow.StateSucceeded || task.Message != "" {
		t.Errorf("record = %v %q, want succeeded with empty message", task.State, task.Message)
	}
}

func TestStep_BoolFalseGetsDefaultMessage(t *testing.T) {
	tr, _ := newTestTracker(&bytes.Buffer{})
	fn := tr.Step("init", "B", 1.0, workflow.BoolFunc(func(ctx context.Context) bool { return false }))

	fn(context.Background())

	task := firstTask(t, tr)
	if task.State != workflow.StateFailed {
		t.Fatalf("state = %v, want failed", task.State)
	}
	if task.Message == "" {
		t.Error("failed bool task has empty message, want generated default")
	}
	if !strings.Contains(task.Message, "B") {
		t.Errorf("default message %q does not name the task", task.Message)
	}
}

func TestStep_CustomFailureMessagePreserved(t *testing.T) {
	tr, _ := newTestTracker(&bytes.Buffer{})
	fn := tr.Step("init", "B", 1.0, func(ctx context.Context) workflow.Outcome {
		return workflow.Failed("custom")
	})

	fn(context.Background())

	if task := firstTask(t, tr); task.Message != "custom" {
		t.Errorf("Message = %q, want %q", task.Message, "custom")
	}
}

func TestStep_SuccessMessagePreserved(t *testing.T) {
	tr, _ := newTestTracker(&bytes.Buffer{})
	fn := tr.Step("init", "A", 1.0, func(ctx context.Context) workflow.Outcome {
		return workflow.SucceededWith("already up to date")
	})

	fn(context.Background())

	task := firstTask(t, tr)
	if task.State != workflow.StateSucceeded || task.Message != "already up to date" {
		t.Errorf("record = %v %q, want succeeded with preserved message", task.State, task.Message)
	}
}

func TestStep_PanicBecomesFailure(t *testing.T) {
	tr, _ := newTestTracker(&bytes.Buffer{})
	fn := tr.Step("proc", "C", 1.0, func(ctx context.Context) workflow.Outcome {
		panic("bad")
	})

	out := fn(context.Background())
	if out.Success {
		t.Fatal("panicking task reported success")
	}

	task := firstTask(t, tr)
	if task.State != workflow.StateFailed {
		t.Errorf("state = %v, want failed (never left non-terminal)", task.State)
	}
	if !strings.Contains(task.Message, "bad") {
		t.Errorf("Message = %q, want panic value", task.Message)
	}
}

func TestStep_NilFuncFailsSafe(t *testing.T) {
	tr, _ := newTestTracker(&bytes.Buffer{})
	fn := tr.Step("init", "A", 1.0, nil)

	out := fn(context.Background())
	if out.Success {
		t.Fatal("nil task func reported success")
	}
	if task := firstTask(t, tr); task.State != workflow.StateFailed || task.Message == "" {
		t.Errorf("record = %v %q, want failed with synthetic message", task.State, task.Message)
	}
}

func TestStep_RepeatInvocationOverwrites(t *testing.T) {
	tr, _ := newTestTracker(&bytes.Buffer{})
	ok := true
	fn := tr.Step("init", "A", 1.0, workflow.BoolFunc(func(ctx context.Context) bool { return ok }))

	fn(context.Background())
	ok = false
	fn(context.Background())

	if task := firstTask(t, tr); task.State != workflow.StateFailed {
		t.Errorf("state after second invocation = %v, want failed", task.State)
	}

	ok = true
	fn(context.Background())
	if task := firstTask(t, tr); task.State != workflow.StateSucceeded {
		t.Errorf("state after third invocation = %v, want succeeded", task.State)
	}
}

func TestStep_AutoStartsRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	tr, r := newTestTracker(buf)
	fn := tr.Step("init", "A", 1.0, workflow.BoolFunc(func(ctx context.Context) bool { return true }))

	fn(context.Background())
	fn(context.Background())

	r.mu.Lock()
	starts := r.starts
	r.mu.Unlock()
	if starts != 2 {
		// Start is delegated on every invocation; the renderer itself
		// is a no-op when already running.
		t.Errorf("renderer starts = %d, want 2", starts)
	}
}

func TestStep_AutoStartDisabled(t *testing.T) {
	r := &fakeRenderer{}
	tr := New(WithOutput(&bytes.Buffer{}), WithRenderer(r), WithAutoStart(false))
	fn := tr.Step("init", "A", 1.0, workflow.BoolFunc(func(ctx context.Context) bool { return true }))

	fn(context.Background())

	if r.starts != 0 {
		t.Errorf("renderer started %d times with auto-start disabled", r.starts)
	}
}

func TestPrintSummary_StopsRendererAndReportsScenario(t *testing.T) {
	buf := &bytes.Buffer{}
	tr, r := newTestTracker(buf)
	ctx := context.Background()

	a := tr.Step("init", "A", 1.0, workflow.BoolFunc(func(ctx context.Context) bool { return true }))
	b := tr.Step("init", "B", 2.0, func(ctx context.Context) workflow.Outcome {
		return workflow.Failed("timeout")
	})
	c := tr.Step("proc", "C", 1.0, func(ctx context.Context) workflow.Outcome {
		panic("bad")
	})

	a(ctx)
	b(ctx)
	c(ctx)
	tr.PrintSummary()

	if r.stops == 0 {
		t.Error("PrintSummary did not stop the renderer")
	}

	out := buf.String()
	initIdx := strings.Index(out, "INIT")
	procIdx := strings.Index(out, "PROC")
	if initIdx < 0 || procIdx < 0 || initIdx > procIdx {
		t.Errorf("phases missing or out of first-seen order:\n%s", out)
	}
	if !strings.Contains(out, "2 of 3 tasks failed") {
		t.Errorf("missing failure tally:\n%s", out)
	}
	bIdx := strings.Index(out, "init: B - timeout")
	cIdx := strings.Index(out, "proc: C - bad")
	if bIdx < 0 || cIdx < 0 || bIdx > cIdx {
		t.Errorf("failure list wrong:\n%s", out)
	}
	if tr.FailedCount() != 2 {
		t.Errorf("FailedCount() = %d, want 2", tr.FailedCount())
	}
}

func TestReset_StopsRendererAndClearsState(t *testing.T) {
	buf := &bytes.Buffer{}
	tr, r := newTestTracker(buf)
	fn := tr.Step("init", "A", 1.0, workflow.BoolFunc(func(ctx context.Context) bool { return false }))
	fn(context.Background())

	tr.Reset()

	if r.stops == 0 {
		t.Error("Reset did not stop the renderer")
	}
	if snap := tr.Snapshot(); len(snap) != 0 {
		t.Fatalf("snapshot after Reset = %+v, want empty", snap)
	}

	// Re-register and re-run with success.
	fn = tr.Step("init", "A", 1.0, workflow.BoolFunc(func(ctx context.Context) bool { return true }))
	fn(context.Background())
	if task := firstTask(t, tr); task.State != workflow.StateSucceeded {
		t.Errorf("state after reset and rerun = %v, want succeeded", task.State)
	}
}

func TestStep_ConcurrentSlots(t *testing.T) {
	tr, _ := newTestTracker(&bytes.Buffer{})
	ctx := context.Background()

	left := tr.Step("load", "left", 1.0, workflow.BoolFunc(func(ctx context.Context) bool { return true }))
	right := tr.Step("load", "right", 2.0, func(ctx context.Context) workflow.Outcome {
		return workflow.Failed("disk full")
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); left(ctx) }()
		go func() { defer wg.Done(); right(ctx) }()
	}
	wg.Wait()

	snap := tr.Snapshot()
	tasks := snap[0].Tasks
	if tasks[0].State != workflow.StateSucceeded {
		t.Errorf("left state = %v, want succeeded", tasks[0].State)
	}
	if tasks[1].State != workflow.StateFailed || tasks[1].Message != "disk full" {
		t.Errorf("right record = %v %q, want failed/disk full", tasks[1].State, tasks[1].Message)
	}
}

func TestDefaultTracker_Delegates(t *testing.T) {
	// The default tracker writes to stdout; swap in an isolated one for
	// the duration of the test.
	old := std
	defer func() { std = old }()

	buf := &bytes.Buffer{}
	r := &fakeRenderer{}
	std = New(WithOutput(buf), WithRenderer(r))

	fn := Step("init", "A", 1.0, workflow.BoolFunc(func(ctx context.Context) bool { return true }))
	StartWorkflow()
	fn(context.Background())
	PrintSummary()
	Reset()

	if !strings.Contains(buf.String(), "✓ A") {
		t.Errorf("default tracker summary missing task:\n%s", buf.String())
	}
	if snap := Default().Snapshot(); len(snap) != 0 {
		t.Errorf("default tracker not cleared by Reset: %+v", snap)
	}
}
