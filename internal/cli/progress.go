package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/mwilhelmy/recall/internal/ingest"
	"github.com/mwilhelmy/recall/internal/memory"
)

// progressMsg carries the running counts from the ingester.
type progressMsg struct {
	done  int
	total int
}

// ingestDoneMsg carries the final batch result.
type ingestDoneMsg struct {
	result ingest.Result
	err    error
}

// ingestModel is the bubbletea model for batch ingestion progress.
type ingestModel struct {
	progress progress.Model
	theme    Theme
	updates  chan tea.Msg
	cancel   context.CancelFunc

	doneCount int
	total     int
	finished  bool
	quitting  bool
	result    ingest.Result
	err       error
}

// newIngestModel creates a progress model fed by the updates channel.
func newIngestModel(total int, updates chan tea.Msg, cancel context.CancelFunc) ingestModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return ingestModel{
		progress: prog,
		theme:    defaultTheme,
		updates:  updates,
		cancel:   cancel,
		total:    total,
	}
}

// Init starts listening for ingester updates.
func (m ingestModel) Init() tea.Cmd {
	return tea.Batch(
		m.waitForUpdate(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m ingestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			// Wait for the ingester to notice the cancellation and send
			// its final result.
			return m, m.waitForUpdate()
		}

	case progressMsg:
		m.doneCount = msg.done
		m.total = msg.total
		return m, m.waitForUpdate()

	case ingestDoneMsg:
		m.finished = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m ingestModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m ingestModel) renderContent() string {
	if m.finished {
		return m.finalView()
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.doneCount) / float64(m.total)
	}

	status := m.theme.statusStyle().Render("[ingesting]")
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d records", m.doneCount, m.total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m ingestModel) finalView() string {
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Ingestion failed: %s\n", m.err))
	}

	r := m.result
	var output string
	output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
	output += fmt.Sprintf("  Records stored:  %d\n", r.Stored)
	if r.Skipped > 0 {
		output += fmt.Sprintf("  Records skipped: %d\n", r.Skipped)
	}
	if r.Failed > 0 {
		output += m.theme.errorStyle().Render(fmt.Sprintf("\nFailures (%d):\n", r.Failed))
		for _, e := range r.Errors {
			output += fmt.Sprintf("  • %s\n", e)
		}
	}
	return output
}

// waitForUpdate blocks on the next ingester message.
func (m ingestModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

// runIngestProgress runs the batch under an interactive progress bar. The
// ingester runs on its own goroutine and reports through the model; Ctrl+C
// cancels the context and the partial result is rendered.
func runIngestProgress(ctx context.Context, ing *ingest.Ingester, records []memory.Record) (ingest.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the ingester never blocks on a slow repaint.
	updates := make(chan tea.Msg, len(records)+1)
	ing.Progress = func(done, total int) {
		updates <- progressMsg{done: done, total: total}
	}

	go func() {
		res, err := ing.Run(ctx, records)
		updates <- ingestDoneMsg{result: res, err: err}
	}()

	model := newIngestModel(len(records), updates, cancel)
	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		return ingest.Result{}, fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(ingestModel); ok {
		return m.result, m.err
	}
	return ingest.Result{}, nil
}
