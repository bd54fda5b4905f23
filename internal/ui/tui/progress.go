package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// maxStatusLines bounds the activity log below the phase list.
const maxStatusLines = 6

var spinnerFrames = []string{"|", "/", "-", "\\"}

// ErrInterrupted is returned by RunProgress when the user quits the view.
var ErrInterrupted = errors.New("interrupted")

// PhaseMsg reports that a workflow phase started, finished or failed.
type PhaseMsg struct {
	Phase string
	Done  bool
	Err   error
}

// StatusMsg is one activity line, such as a resource being created.
type StatusMsg struct {
	Phase string
	Line  string
}

// DoneMsg ends the view with the workflow result.
type DoneMsg struct {
	Err error
}

type tickMsg time.Time

// PhaseRow is one phase in the progress list.
type PhaseRow struct {
	Name    string
	Active  bool
	Done    bool
	Err     error
	Started time.Time
	Elapsed time.Duration
}

// ProgressModel is the Bubble Tea model for a provisioning run.
type ProgressModel struct {
	Title    string
	Subtitle string
	Phases   []PhaseRow
	Lines    []string

	SpinnerFrame int
	Width        int
	Err          error
	Done         bool
	Interrupted  bool

	now func() time.Time
}

// NewProgressModel creates a model listing phases in run order.
func NewProgressModel(title, subtitle string, phases []string) ProgressModel {
	rows := make([]PhaseRow, len(phases))
	for i, name := range phases {
		rows[i] = PhaseRow{Name: name}
	}
	return ProgressModel{Title: title, Subtitle: subtitle, Phases: rows, now: time.Now}
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m ProgressModel) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.Interrupted = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Width = msg.Width
	case PhaseMsg:
		m = m.updatePhase(msg)
	case StatusMsg:
		m = m.appendLine(msg)
	case tickMsg:
		if m.Done {
			return m, nil
		}
		m.SpinnerFrame++
		return m, tick()
	case DoneMsg:
		m.Done = true
		m.Err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) updatePhase(msg PhaseMsg) ProgressModel {
	rows := make([]PhaseRow, len(m.Phases))
	copy(rows, m.Phases)

	i := -1
	for j := range rows {
		if rows[j].Name == msg.Phase {
			i = j
			break
		}
	}
	if i < 0 {
		rows = append(rows, PhaseRow{Name: msg.Phase})
		i = len(rows) - 1
	}

	row := &rows[i]
	switch {
	case msg.Err != nil:
		row.Active = false
		row.Err = msg.Err
		row.Elapsed = m.clock().Sub(row.Started)
	case msg.Done:
		row.Active = false
		row.Done = true
		row.Elapsed = m.clock().Sub(row.Started)
	default:
		row.Active = true
		row.Started = m.clock()
	}
	m.Phases = rows
	return m
}

func (m ProgressModel) appendLine(msg StatusMsg) ProgressModel {
	line := msg.Line
	if msg.Phase != "" {
		line = msg.Phase + ": " + line
	}
	lines := append(append([]string(nil), m.Lines...), line)
	if len(lines) > maxStatusLines {
		lines = lines[len(lines)-maxStatusLines:]
	}
	m.Lines = lines
	return m
}

func (m ProgressModel) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

// completed returns the number of finished phases.
func (m ProgressModel) completed() int {
	n := 0
	for _, p := range m.Phases {
		if p.Done {
			n++
		}
	}
	return n
}

// View implements tea.Model.
func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(headingStyle.Render(m.Title))
	if m.Subtitle != "" {
		b.WriteString(" " + captionStyle.Render("("+m.Subtitle+")"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderBar() + "\n\n")

	for _, p := range m.Phases {
		b.WriteString("  " + m.phaseMark(p) + " " + p.Name)
		if p.Elapsed > 0 {
			b.WriteString("  " + mutedStyle.Render(p.Elapsed.Round(time.Second).String()))
		}
		if p.Err != nil {
			b.WriteString("  " + failStyle.Render(p.Err.Error()))
		}
		b.WriteString("\n")
	}

	if len(m.Lines) > 0 {
		b.WriteString("\n")
		for _, line := range m.Lines {
			b.WriteString("  " + mutedStyle.Render(m.clip(line)) + "\n")
		}
	}

	b.WriteString(summaryStyle.Render(m.footer()) + "\n")
	return b.String()
}

func (m ProgressModel) renderBar() string {
	width := 30
	if m.Width > 0 && m.Width-20 < width {
		width = max(m.Width-20, 10)
	}

	total := len(m.Phases)
	filled := 0
	if total > 0 {
		filled = m.completed() * width / total
	}
	bar := barDoneStyle.Render(strings.Repeat("=", filled)) +
		barTodoStyle.Render(strings.Repeat(".", width-filled))
	return fmt.Sprintf("  [%s] %d/%d", bar, m.completed(), total)
}

func (m ProgressModel) phaseMark(p PhaseRow) string {
	switch {
	case p.Err != nil:
		return failStyle.Render(markFail)
	case p.Done:
		return passStyle.Render(markPass)
	case p.Active:
		frame := spinnerFrames[m.SpinnerFrame%len(spinnerFrames)]
		return runningStyle.Render(" " + frame + "  ")
	default:
		return markPending
	}
}

func (m ProgressModel) footer() string {
	switch {
	case m.Interrupted:
		return "interrupted"
	case m.Done && m.Err != nil:
		return "failed: " + m.Err.Error()
	case m.Done:
		return "done"
	default:
		return "press q to cancel"
	}
}

func (m ProgressModel) clip(line string) string {
	if m.Width <= 4 || len(line) <= m.Width-4 {
		return line
	}
	return line[:m.Width-7] + "..."
}

// RunProgress shows m while run executes. run reports progress through send.
// Quitting the view cancels the context passed to run and RunProgress waits
// for run to return.
func RunProgress(
	ctx context.Context,
	m ProgressModel,
	run func(ctx context.Context, send func(tea.Msg)) error,
	opts ...tea.ProgramOption,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(m, opts...)

	result := make(chan error, 1)
	go func() {
		err := run(ctx, p.Send)
		result <- err
		p.Send(DoneMsg{Err: err})
	}()

	finalModel, tuiErr := p.Run()
	cancel()
	runErr := <-result

	if tuiErr != nil {
		if runErr != nil {
			return runErr
		}
		return fmt.Errorf("TUI error: %w", tuiErr)
	}
	if fm, ok := finalModel.(ProgressModel); ok && fm.Interrupted && runErr == nil {
		return ErrInterrupted
	}
	return runErr
}
