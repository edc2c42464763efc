package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/docparse-go/internal/client"
	"github.com/raphaelgruber/docparse-go/internal/models"
)

const pollInterval = time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the job list
type tickMsg time.Time

// jobsUpdateMsg carries the refreshed job list
type jobsUpdateMsg struct {
	jobs []models.Job
	err  error
}

// progressModel is the bubbletea model for batch progress.
type progressModel struct {
	client   *client.Client
	watchIDs map[string]bool // nil means watch everything
	jobs     []models.Job
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

// newProgressModel creates a new progress model.
// jobIDs limits the display to the given jobs; empty watches all jobs.
func newProgressModel(c *client.Client, jobIDs []string) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	var watchIDs map[string]bool
	if len(jobIDs) > 0 {
		watchIDs = make(map[string]bool, len(jobIDs))
		for _, id := range jobIDs {
			watchIDs[id] = true
		}
	}

	return progressModel{
		client:   c,
		watchIDs: watchIDs,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchJobs(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchJobs()

	case jobsUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch jobs: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}

		m.jobs = m.filter(msg.jobs)

		if len(m.jobs) > 0 && m.terminalCount() == len(m.jobs) {
			m.done = true
			return m, tea.Quit
		}

		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// filter keeps only the watched jobs when an explicit ID set was given.
func (m progressModel) filter(jobs []models.Job) []models.Job {
	if m.watchIDs == nil {
		return jobs
	}
	kept := jobs[:0:0]
	for _, job := range jobs {
		if m.watchIDs[job.ID] {
			kept = append(kept, job)
		}
	}
	return kept
}

func (m progressModel) terminalCount() int {
	n := 0
	for _, job := range m.jobs {
		if job.Status.Terminal() {
			n++
		}
	}
	return n
}

func (m progressModel) failedJobs() []models.Job {
	var failed []models.Job
	for _, job := range m.jobs {
		if job.Status == models.JobStatusFailed {
			failed = append(failed, job)
		}
	}
	return failed
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if len(m.jobs) == 0 {
		return "Waiting for jobs...\n"
	}

	terminal := m.terminalCount()
	pct := float64(terminal) / float64(len(m.jobs))

	status := m.theme.statusStyle().Render("[parsing]")
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d jobs", terminal, len(m.jobs))
	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		msg := "\nJobs continue in background.\nUse 'docparse jobs' to check status.\n"
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s\n", m.err))
	}

	failed := m.failedJobs()
	if len(failed) == 0 {
		return m.theme.completedStyle().Render(fmt.Sprintf("✓ Completed %d jobs\n", len(m.jobs)))
	}

	output := m.theme.completedStyle().Render(fmt.Sprintf("✓ %d completed", len(m.jobs)-len(failed)))
	output += m.theme.errorStyle().Render(fmt.Sprintf(", ✗ %d failed\n", len(failed)))
	for _, job := range failed {
		output += fmt.Sprintf("  • %s (%s): %s\n", job.InputPath, job.ID, job.Error)
	}
	return output
}

// fetchJobs fetches the current job list from the server.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m progressModel) fetchJobs() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		jobs, err := m.client.ListJobs(ctx)
		return jobsUpdateMsg{jobs: jobs, err: err}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// RunBatchProgress runs the interactive progress UI over a set of jobs.
// An empty jobIDs slice watches every job the server knows about.
// Returns nil on completion or Ctrl+C (background), error on UI failure.
func RunBatchProgress(c *client.Client, jobIDs []string) error {
	model := newProgressModel(c, jobIDs)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}

	return nil
}
