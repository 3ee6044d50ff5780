// package formatter renders the activity and summary tables to CSV, JSON or Markdown and writes them to disk
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/desertthunder/stx/internal/shared"
	"github.com/desertthunder/stx/internal/strava"
)

// Format is an output format of `strava export`.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates s as a [Format].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want csv, json or markdown)", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatMarkdown:
		return ".md"
	default:
		return ".csv"
	}
}

// ExportToCSV renders a table with a header row. Absent optional values are blank cells.
func ExportToCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range records {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("CSV record has %d fields, want %d", len(record), len(headers))
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a table as a GitHub-flavored Markdown table under a heading.
func ExportToMarkdown(title string, headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Rows**: %d\n\n", len(records))

	writeRow := func(cells []string) {
		buf.WriteString("|")
		for _, c := range cells {
			buf.WriteString(" " + escapeCell(c) + " |")
		}
		buf.WriteString("\n")
	}

	writeRow(headers)
	buf.WriteString("|")
	for range headers {
		buf.WriteString(" --- |")
	}
	buf.WriteString("\n")

	for _, record := range records {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("markdown record has %d fields, want %d", len(record), len(headers))
		}
		writeRow(record)
	}

	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// ActivityRecords renders activity rows in [strava.ActivityHeaders] order.
func ActivityRecords(rows []strava.ActivityRow) [][]string {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.Fields()
	}
	return records
}

// SummaryRecords renders summary rows in [strava.SummaryHeaders] order.
func SummaryRecords(rows []strava.SummaryRow) [][]string {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.Fields()
	}
	return records
}

// Render encodes the activity and summary tables in the given format.
func Render(format Format, activities []strava.ActivityRow, summary []strava.SummaryRow) (act, sum []byte, err error) {
	switch format {
	case FormatCSV:
		if act, err = ExportToCSV(strava.ActivityHeaders, ActivityRecords(activities)); err != nil {
			return nil, nil, err
		}
		sum, err = ExportToCSV(strava.SummaryHeaders, SummaryRecords(summary))
	case FormatJSON:
		if act, err = shared.MarshalJSON(activities, true); err != nil {
			return nil, nil, fmt.Errorf("failed to encode activities: %w", err)
		}
		sum, err = shared.MarshalJSON(summary, true)
	case FormatMarkdown:
		if act, err = ExportToMarkdown("Activities", strava.ActivityHeaders, ActivityRecords(activities)); err != nil {
			return nil, nil, err
		}
		sum, err = ExportToMarkdown("Summary by sport", strava.SummaryHeaders, SummaryRecords(summary))
	default:
		return nil, nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return nil, nil, err
	}
	return act, sum, nil
}

// ExportResult contains the paths of files created by [WriteExport]
type ExportResult struct {
	ActivitiesFile string
	SummaryFile    string
}

// WriteExport renders both tables and writes them into dir.
//
// The file names keep their base name and take the extension of the format. Both tables are staged
// next to their targets before either is renamed into place, so a failed write leaves the files of
// the previous export as they were.
func WriteExport(format Format, dir, activitiesFile, summaryFile string, activities []strava.ActivityRow, summary []strava.SummaryRow) (*ExportResult, error) {
	act, sum, err := Render(format, activities, summary)
	if err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}

	result := &ExportResult{
		ActivitiesFile: filepath.Join(dir, withExtension(activitiesFile, format)),
		SummaryFile:    filepath.Join(dir, withExtension(summaryFile, format)),
	}

	actFile, err := shared.StageFile(result.ActivitiesFile, act, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to write activities: %w", err)
	}
	sumFile, err := shared.StageFile(result.SummaryFile, sum, 0644)
	if err != nil {
		actFile.Discard()
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}

	if err := actFile.Commit(); err != nil {
		sumFile.Discard()
		return nil, fmt.Errorf("failed to write activities: %w", err)
	}
	if err := sumFile.Commit(); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}

	return result, nil
}

func withExtension(name string, format Format) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + format.Extension()
}

// SummaryLines formats the per-sport summary for the console, e.g. "Run: 2 activities, 8.0 km".
func SummaryLines(summary []strava.SummaryRow) []string {
	lines := make([]string, len(summary))
	for i, s := range summary {
		name := s.SportType
		if name == "" {
			name = "(none)"
		}
		lines[i] = fmt.Sprintf("%s: %d activities, %.1f km", name, s.Count, s.DistanceKM)
	}
	return lines
}
