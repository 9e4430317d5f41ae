package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// StageReporter forwards pipeline stage events to a running program.
type StageReporter struct {
	send func(tea.Msg)
	now  func() time.Time
}

// NewStageReporter sends updates through send, typically the callback
// handed to RunWithWork.
func NewStageReporter(send func(tea.Msg)) *StageReporter {
	return &StageReporter{send: send, now: time.Now}
}

func (r *StageReporter) StageStarted(stage string) {
	r.send(StageStartedMsg{Stage: stage, At: r.now()})
}

func (r *StageReporter) StageFinished(stage string, err error, elapsed time.Duration) {
	r.send(StageFinishedMsg{Stage: stage, Err: err, Elapsed: elapsed})
}

// LineReporter prints one line per finished stage, for non-interactive output.
type LineReporter struct {
	Printf func(format string, args ...any)
}

func (r LineReporter) StageStarted(string) {}

func (r LineReporter) StageFinished(stage string, err error, elapsed time.Duration) {
	status := "complete"
	if err != nil {
		status = "error"
	}
	r.Printf("%-8s  %s  %s\n", stage, StatusStyle(status).Render(pad(status, 8)), formatElapsed(elapsed))
}
