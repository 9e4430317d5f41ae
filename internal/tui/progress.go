package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	tickInterval = 150 * time.Millisecond
	detailWidth  = 48
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// tickMsg drives the spinner and the running stage's clock.
type tickMsg time.Time

// StageStartedMsg marks a stage as running.
type StageStartedMsg struct {
	Stage string
	At    time.Time
}

// StageFinishedMsg records a stage outcome.
type StageFinishedMsg struct {
	Stage   string
	Err     error
	Elapsed time.Duration
}

// WorkDoneMsg signals that all background work has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}

type stageRow struct {
	name    string
	status  string
	detail  string
	started time.Time
	elapsed time.Duration
}

// ProgressModel is a bubbletea model showing one row per pipeline stage.
type ProgressModel struct {
	title string
	rows  []stageRow
	index map[string]int
	done  bool
	err   error
	tick  int
	now   func() time.Time
}

// NewStageModel returns a model with one pending row per stage, in order.
func NewStageModel(title string, stages []string) ProgressModel {
	m := ProgressModel{
		title: title,
		index: make(map[string]int, len(stages)),
		now:   time.Now,
	}
	for _, s := range stages {
		m.index[s] = len(m.rows)
		m.rows = append(m.rows, stageRow{name: s, status: "pending"})
	}
	return m
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init satisfies the tea.Model interface.
func (m ProgressModel) Init() tea.Cmd {
	return scheduleTick()
}

// Update satisfies the tea.Model interface.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()

	case StageStartedMsg:
		if row := m.row(msg.Stage); row != nil {
			row.status = "running"
			row.started = msg.At
		}
		return m, nil

	case StageFinishedMsg:
		if row := m.row(msg.Stage); row != nil {
			row.status = "complete"
			row.elapsed = msg.Elapsed
			if msg.Err != nil {
				row.status = "error"
				row.detail = msg.Err.Error()
			}
		}
		return m, nil

	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ProgressModel) row(stage string) *stageRow {
	i, ok := m.index[stage]
	if !ok {
		return nil
	}
	return &m.rows[i]
}

// View satisfies the tea.Model interface.
func (m ProgressModel) View() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(HeaderStyle.Render(m.title))
		b.WriteString("\n\n")
	}

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%-8s  %-8s  %-7s  %s", "STAGE", "STATUS", "TIME", "DETAIL")))
	b.WriteByte('\n')
	for _, r := range m.rows {
		fmt.Fprintf(&b, "%-8s  %s  %-7s  %s\n",
			r.name,
			StatusStyle(r.status).Render(pad(r.status, 8)),
			m.clock(r),
			TruncateWithEllipsis(r.detail, detailWidth),
		)
	}

	if m.done && m.err != nil {
		fmt.Fprintf(&b, "\nError: %v\n", m.err)
	} else if !m.done {
		processed, total := m.progressCounts()
		spinner := spinnerFrames[m.tick%len(spinnerFrames)]
		fmt.Fprintf(&b, "\n%s %d/%d stages done\n", spinner, processed, total)
	}
	return b.String()
}

// clock is the stage's final time, or the time so far while it runs.
func (m ProgressModel) clock(r stageRow) string {
	switch r.status {
	case "complete", "error":
		return formatElapsed(r.elapsed)
	case "running":
		if !r.started.IsZero() {
			return formatElapsed(m.now().Sub(r.started))
		}
	}
	return ""
}

// progressCounts returns (processed, total) where processed counts rows in a
// terminal state.
func (m ProgressModel) progressCounts() (int, int) {
	processed := 0
	for _, r := range m.rows {
		if r.status == "complete" || r.status == "error" {
			processed++
		}
	}
	return processed, len(m.rows)
}

// Done returns whether the model has finished (work done or error).
func (m ProgressModel) Done() bool {
	return m.done
}

// Err returns any fatal error that occurred.
func (m ProgressModel) Err() error {
	return m.err
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// TruncateWithEllipsis truncates a string and adds "..." if it exceeds max length.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < 10*time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
