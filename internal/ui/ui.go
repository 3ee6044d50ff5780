package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/stx/internal/formatter"
	"github.com/desertthunder/stx/internal/strava"
	"github.com/desertthunder/stx/internal/tasks"
)

// maxLogLines is the number of progress messages kept on the export view.
const maxLogLines = 8

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ExportView ViewState = iota
	SummaryView
	ActivityView
)

// Exporter runs an export. [*tasks.ExportEngine] is the production implementation.
type Exporter interface {
	Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, opts tasks.ExportOpts) (*tasks.ExportResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       Exporter
	opts         tasks.ExportOpts
	width        int
	height       int
	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	done         chan exportDone
	progress     tasks.ProgressUpdate
	log          []string
	result       *tasks.ExportResult
	err          error
	summary      table.Model
	activities   list.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a model that runs engine with opts as soon as the program starts.
func NewModel(ctx context.Context, engine Exporter, opts tasks.ExportOpts) *Model {
	return &Model{
		ctx:     ctx,
		view:    ExportView,
		engine:  engine,
		opts:    opts,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Result returns the outcome of the last export, available after the program exits.
func (m *Model) Result() (*tasks.ExportResult, error) {
	return m.result, m.err
}

// Init starts the export and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startExport())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.result != nil {
			m.activities.SetSize(msg.Width-4, msg.Height-4)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ExportView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case SummaryView:
			return m.handleSummaryKeys(msg)
		case ActivityView:
			return m.handleActivityKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != ExportView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.progress = update
			m.log = append(m.log, update.Message)
			if len(m.log) > maxLogLines {
				m.log = m.log[len(m.log)-maxLogLines:]
			}
			return m, m.waitForProgress()

		case MsgExportComplete:
			done := msg.data.(exportDone)
			m.result = done.result
			m.err = done.err
			m.progressChan = nil
			m.done = nil
			m.view = SummaryView
			if m.result != nil {
				m.summary = summaryTable(m.result.Summary, max(m.height-12, 5))
				m.activities = list.New(activityItems(m.result.Activities), list.NewDefaultDelegate(), max(m.width-4, 20), max(m.height-4, 10))
				m.activities.Title = fmt.Sprintf("%d activities", len(m.result.Activities))
			}
			return m, nil
		}
	}

	if m.view == ActivityView {
		var cmd tea.Cmd
		m.activities, cmd = m.activities.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ExportView:
		return m.renderExport()
	case SummaryView:
		return m.renderSummary()
	case ActivityView:
		return m.renderActivities()
	default:
		return ""
	}
}

func (m *Model) handleSummaryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = ExportView
		m.result = nil
		m.err = nil
		m.log = nil
		m.progress = tasks.ProgressUpdate{}
		return m, tea.Batch(m.spinner.Tick, m.startExport())
	case key.Matches(msg, m.keys.next):
		if m.result != nil && len(m.result.Activities) > 0 {
			m.view = ActivityView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.summary, cmd = m.summary.Update(msg)
	return m, cmd
}

func (m *Model) handleActivityKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.activities.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.view = SummaryView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.activities, cmd = m.activities.Update(msg)
	return m, cmd
}

func (m *Model) startExport() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan exportDone, 1)
	m.progressChan = progress
	m.done = done

	go func() {
		result, err := m.engine.Run(m.ctx, progress, m.opts)
		done <- exportDone{result, err}
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		if progress == nil {
			return exportCompleteMsg(m.result, m.err)
		}

		update, ok := <-progress
		if !ok {
			d := <-done
			return exportCompleteMsg(d.result, d.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderExport() string {
	title := styles.title.Render("Exporting Strava activities")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchActivities:
		phase = fmt.Sprintf("Fetching activities (page %d)", m.progress.Step)
	case tasks.NormalizeActivities, tasks.SummarizeActivities:
		phase = "Summarizing..."
	case tasks.WriteFiles, tasks.RecordRun:
		phase = "Writing files..."
	default:
		phase = "Starting..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s %s\n\n", title, m.spinner.View(), phase)
	for _, line := range m.log {
		b.WriteString(styles.help.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderSummary() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.next, m.keys.restart, m.keys.quit})

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Export failed: %v", m.err)), helpView)
	}
	if m.result == nil || len(m.result.Activities) == 0 {
		return fmt.Sprintf("%s\n\n%s", styles.warn.Render("No activities found for the specified time period."), helpView)
	}

	count, distance := strava.Totals(m.result.Summary)
	title := styles.ok.Render(fmt.Sprintf("✓ Exported %d activities, %.1f km total", count, distance))

	var files string
	if f := m.result.Files; f != nil {
		files = styles.help.Render(fmt.Sprintf("%s\n%s", f.ActivitiesFile, f.SummaryFile))
	}

	lines := styles.box.Render(strings.Join(formatter.SummaryLines(m.result.Summary), "\n"))
	return fmt.Sprintf("%s\n\n%s\n\n%s\n%s\n\n%s", title, m.summary.View(), lines, files, helpView)
}

func (m *Model) renderActivities() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.activities.View(), helpView)
}
