package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"

	"github.com/desertthunder/stx/internal/strava"
)

var _ list.Item = activityItem{}

// activityItem wraps [strava.ActivityRow] to implement [list.Item].
type activityItem struct {
	row strava.ActivityRow
}

func (i activityItem) FilterValue() string { return i.row.Name + " " + i.row.SportType }
func (i activityItem) Title() string       { return i.row.Name }
func (i activityItem) Description() string {
	desc := fmt.Sprintf("%s • %s • %.2f km", i.row.SportType, i.row.StartDate, i.row.DistanceKM)
	if i.row.AverageHeartrate.Valid {
		desc = fmt.Sprintf("%s • %.0f bpm", desc, i.row.AverageHeartrate.Value)
	}
	return desc
}

func activityItems(rows []strava.ActivityRow) []list.Item {
	items := make([]list.Item, len(rows))
	for i, row := range rows {
		items[i] = activityItem{row: row}
	}
	return items
}

func summaryTable(summary []strava.SummaryRow, height int) table.Model {
	columns := []table.Column{
		{Title: "Sport", Width: 20},
		{Title: "Distance (km)", Width: 14},
		{Title: "Activities", Width: 10},
	}

	rows := make([]table.Row, len(summary))
	for i, s := range summary {
		name := s.SportType
		if name == "" {
			name = "(none)"
		}
		rows[i] = table.Row{name, fmt.Sprintf("%.2f", s.DistanceKM), fmt.Sprintf("%d", s.Count)}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(min(len(rows)+1, height), 2)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true)
	s.Selected = styles.title.UnsetMarginBottom()
	t.SetStyles(s)
	return t
}
