package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/stx/internal/formatter"
	"github.com/desertthunder/stx/internal/strava"
	"github.com/desertthunder/stx/internal/tasks"
)

type mockExporter struct {
	result *tasks.ExportResult
	err    error
	runs   int
}

func (m *mockExporter) Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, opts tasks.ExportOpts) (*tasks.ExportResult, error) {
	m.runs++
	progress <- tasks.ProgressUpdate{Phase: tasks.FetchActivities, Step: 1, Message: "Fetched page 1 with 2 activities (2 total)"}
	return m.result, m.err
}

func sampleResult() *tasks.ExportResult {
	rows := []strava.ActivityRow{
		{ID: 1, Name: "Morning Run", SportType: "Run", StartDate: "2024-05-01T07:00:00Z", DistanceKM: 5, AverageHeartrate: strava.Some(150)},
		{ID: 2, Name: "Lunch Ride", SportType: "Ride", StartDate: "2024-05-02T12:00:00Z", DistanceKM: 20},
	}
	return &tasks.ExportResult{
		Activities: rows,
		Summary:    strava.Summarize(rows),
		Pages:      1,
		Files:      &formatter.ExportResult{ActivitiesFile: "out/a.csv", SummaryFile: "out/s.csv"},
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// runToCompletion drives the progress loop the way the bubbletea runtime would.
func runToCompletion(t *testing.T, m *Model) {
	t.Helper()
	drive(t, m, m.startExport())
}

func drive(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for range 10 {
		msg := cmd()
		_, cmd = m.Update(msg)
		if m.view != ExportView {
			return
		}
	}
	t.Fatal("export did not complete")
}

func TestModel(t *testing.T) {
	ctx := context.Background()

	t.Run("progress then summary", func(t *testing.T) {
		exp := &mockExporter{result: sampleResult()}
		m := NewModel(ctx, exp, tasks.ExportOpts{})

		msg := m.startExport()()
		m.Update(msg)
		if m.progress.Phase != tasks.FetchActivities {
			t.Errorf("expected fetch phase, got %v", m.progress.Phase)
		}
		if !strings.Contains(m.View(), "Fetching activities (page 1)") {
			t.Errorf("unexpected export view: %s", m.View())
		}

		_, cmd := m.Update(m.waitForProgress()())
		if cmd != nil {
			t.Error("expected no command after completion")
		}
		if m.view != SummaryView {
			t.Fatalf("expected summary view, got %v", m.view)
		}

		view := m.View()
		for _, want := range []string{"Exported 2 activities", "Ride: 1 activities, 20.0 km", "out/a.csv"} {
			if !strings.Contains(view, want) {
				t.Errorf("summary view missing %q:\n%s", want, view)
			}
		}

		result, err := m.Result()
		if err != nil || result == nil {
			t.Errorf("unexpected result: %v, %v", result, err)
		}
	})

	t.Run("navigates to activities and back", func(t *testing.T) {
		m := NewModel(ctx, &mockExporter{result: sampleResult()}, tasks.ExportOpts{})
		runToCompletion(t, m)

		m.Update(keyMsg("tab"))
		if m.view != ActivityView {
			t.Fatalf("expected activity view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Morning Run") {
			t.Errorf("activity view missing item:\n%s", m.View())
		}

		m.Update(keyMsg("esc"))
		if m.view != SummaryView {
			t.Errorf("expected summary view, got %v", m.view)
		}
	})

	t.Run("failure shows error", func(t *testing.T) {
		m := NewModel(ctx, &mockExporter{err: errors.New("rate limited forever")}, tasks.ExportOpts{})
		runToCompletion(t, m)

		if !strings.Contains(m.View(), "Export failed: rate limited forever") {
			t.Errorf("unexpected view:\n%s", m.View())
		}
		m.Update(keyMsg("tab"))
		if m.view != SummaryView {
			t.Error("expected tab to be ignored without activities")
		}
	})

	t.Run("empty result", func(t *testing.T) {
		m := NewModel(ctx, &mockExporter{result: &tasks.ExportResult{}}, tasks.ExportOpts{})
		runToCompletion(t, m)

		if !strings.Contains(m.View(), "No activities found") {
			t.Errorf("unexpected view:\n%s", m.View())
		}
	})

	t.Run("restart runs again", func(t *testing.T) {
		exp := &mockExporter{result: sampleResult()}
		m := NewModel(ctx, exp, tasks.ExportOpts{})
		runToCompletion(t, m)

		_, cmd := m.Update(keyMsg("r"))
		if m.view != ExportView || cmd == nil {
			t.Fatalf("expected restart into export view")
		}
		drive(t, m, m.waitForProgress())
		if exp.runs != 2 {
			t.Errorf("expected 2 runs, got %d", exp.runs)
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := NewModel(ctx, &mockExporter{result: sampleResult()}, tasks.ExportOpts{})
		_, cmd := m.Update(keyMsg("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestActivityItem(t *testing.T) {
	item := activityItem{row: sampleResult().Activities[0]}
	if item.Title() != "Morning Run" {
		t.Errorf("unexpected title %q", item.Title())
	}
	if want := "Run • 2024-05-01T07:00:00Z • 5.00 km • 150 bpm"; item.Description() != want {
		t.Errorf("Description() = %q, want %q", item.Description(), want)
	}
	if !strings.Contains(item.FilterValue(), "Run") {
		t.Errorf("unexpected filter value %q", item.FilterValue())
	}
}
