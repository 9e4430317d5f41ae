package tui

import (
	"context"
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithWork starts a bubbletea program for model and runs work alongside
// it. The context handed to work is cancelled when the user quits the
// program, so an interrupted render stops its ffmpeg jobs.
func RunWithWork(ctx context.Context, out io.Writer, model ProgressModel, work func(ctx context.Context, send func(tea.Msg))) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		// Let bubbletea start its event loop and render the initial frame.
		time.Sleep(50 * time.Millisecond)
		work(ctx, p.Send)
		p.Send(WorkDoneMsg{})
	}()

	finalModel, err := p.Run()
	cancel()
	<-finished
	if m, ok := finalModel.(ProgressModel); ok && m.Err() != nil {
		return m.Err()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
