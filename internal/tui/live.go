// Package tui provides the live terminal renderer for a running
// workflow. It redraws the task list inline on a fixed interval, reading
// registry state only through snapshots so task goroutines never wait on
// the terminal.
package tui

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stepflow/stepflow/pkg/workflow"
)

// SnapshotFunc returns the current task state for rendering.
type SnapshotFunc func() []workflow.PhaseSnapshot

// refreshMsg tells the model to take a fresh snapshot.
type refreshMsg struct{}

// finalizeMsg tells the model to draw one last frame and quit.
type finalizeMsg struct{}

var (
	phaseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Faint(true)
)

// liveModel is the bubbletea model behind the live display.
type liveModel struct {
	snap     SnapshotFunc
	interval time.Duration
	spin     spinner.Model
	phases   []workflow.PhaseSnapshot
}

// newLiveModel builds the model with an immediate first snapshot so the
// initial frame is never blank.
func newLiveModel(snap SnapshotFunc, interval time.Duration) liveModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = runningStyle
	return liveModel{
		snap:     snap,
		interval: interval,
		spin:     s,
		phases:   snap(),
	}
}

// Init implements tea.Model.
func (m liveModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.scheduleRefresh())
}

// Update implements tea.Model.
func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case refreshMsg:
		m.phases = m.snap()
		return m, m.scheduleRefresh()

	case finalizeMsg:
		m.phases = m.snap()
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model. One call renders one consistent frame from
// the most recent snapshot.
func (m liveModel) View() string {
	var b strings.Builder
	for _, phase := range m.phases {
		if len(phase.Tasks) == 0 {
			continue
		}
		b.WriteString(phaseStyle.Render(strings.ToUpper(phase.Name)))
		b.WriteString("\n")
		for _, task := range phase.Tasks {
			b.WriteString(m.taskLine(task))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// taskLine renders one task with its state glyph.
func (m liveModel) taskLine(task workflow.TaskSnapshot) string {
	switch task.State {
	case workflow.StateRunning:
		return "  " + m.spin.View() + " " + runningStyle.Render(task.Name)
	case workflow.StateSucceeded:
		return "  " + successStyle.Render("✓") + " " + task.Name
	case workflow.StateFailed:
		return "  " + failureStyle.Render("✗") + " " + task.Name
	default:
		return pendingStyle.Render("  - " + task.Name)
	}
}

// scheduleRefresh arms the next snapshot poll.
func (m liveModel) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

// Live runs the inline live display in its own goroutine. Start and Stop
// are safe to call from any goroutine; Stop draws a final frame before
// releasing the terminal.
type Live struct {
	snap     SnapshotFunc
	interval time.Duration
	out      io.Writer

	mu      sync.Mutex
	prog    *tea.Program
	done    chan struct{}
	started bool
}

// LiveOption configures a Live renderer.
type LiveOption func(*Live)

// WithOutput redirects rendering, used by tests.
func WithOutput(w io.Writer) LiveOption {
	return func(l *Live) { l.out = w }
}

// NewLive creates a live renderer polling snap every interval.
func NewLive(snap SnapshotFunc, interval time.Duration, opts ...LiveOption) *Live {
	l := &Live{
		snap:     snap,
		interval: interval,
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start begins the periodic redraw loop. Calling Start on a running
// renderer is a no-op.
func (l *Live) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return
	}

	model := newLiveModel(l.snap, l.interval)
	// Inline (no alt screen) so the final frame stays on the terminal,
	// and no input reader so the workflow keeps stdin.
	l.prog = tea.NewProgram(model,
		tea.WithOutput(l.out),
		tea.WithInput(nil),
	)
	l.done = make(chan struct{})
	l.started = true

	go func(p *tea.Program, done chan struct{}) {
		defer close(done)
		// The workflow outcome does not depend on the display; a
		// terminal that cannot be drawn to only loses the live view.
		_, _ = p.Run()
	}(l.prog, l.done)
}

// Stop draws one final frame reflecting terminal task state, halts the
// loop, and releases the terminal. Safe to call when not running.
func (l *Live) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return
	}

	l.prog.Send(finalizeMsg{})

	select {
	case <-l.done:
	case <-time.After(2 * time.Second):
		// A wedged terminal must not hang the workflow.
		l.prog.Kill()
	}

	l.prog = nil
	l.started = false
}

// Running reports whether the redraw loop is active.
func (l *Live) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}
