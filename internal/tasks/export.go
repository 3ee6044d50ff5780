package tasks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/stx/internal/formatter"
	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/strava"
)

// RunRecorder stores completed exports. [*repositories.ExportRunRepository] satisfies it.
type RunRecorder interface {
	Create(run *models.ExportRun) error
}

// ExportOpts configures a single export.
type ExportOpts struct {
	Since          time.Time
	PerPage        int
	PageInterval   time.Duration
	Format         formatter.Format
	OutputDir      string
	ActivitiesFile string
	SummaryFile    string
}

// ExportResult is everything produced by an export.
type ExportResult struct {
	Activities []strava.ActivityRow
	Summary    []strava.SummaryRow
	Pages      int
	Files      *formatter.ExportResult // nil when nothing was written
	Run        *models.ExportRun       // nil when the run was not recorded
}

// ExportEngine fetches, normalizes, summarizes, and writes Strava activities.
type ExportEngine struct {
	requester strava.Requester
	recorder  RunRecorder
	logger    *log.Logger
	now       func() time.Time
}

// NewExportEngine creates an engine that fetches through requester. recorder may be nil.
func NewExportEngine(requester strava.Requester, recorder RunRecorder, logger *log.Logger) *ExportEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ExportEngine{requester: requester, recorder: recorder, logger: logger, now: time.Now}
}

// Run performs an export.
//
// Nothing is written unless every page was fetched and every record normalized. An empty result
// writes no files and records no run. A failure to record the run is logged and does not fail the export.
func (e *ExportEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	started := e.now()
	result := &ExportResult{}

	if opts.Format == "" {
		opts.Format = formatter.FormatCSV
	}

	pager, err := strava.NewPager(e.requester, strava.PagerConfig{
		PerPage:  opts.PerPage,
		Interval: opts.PageInterval,
		Logger:   e.logger,
		OnPage: func(ev strava.PageEvent) {
			result.Pages = ev.Page
			sendProgress(progress, fetchedPageUpdate(ev))
		},
	})
	if err != nil {
		return nil, err
	}

	sendProgress(progress, fetchingActivitiesUpdate(opts.Since.Format(time.DateOnly)))
	records, err := strava.Collect(pager.FetchAll(ctx, opts.Since))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}

	rows, err := strava.NormalizeAll(records)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize activities: %w", err)
	}
	result.Activities = rows
	sendProgress(progress, normalizeUpdate(len(rows)))

	if len(rows) == 0 {
		e.logger.Info("no activities found", "after", opts.Since.Format(time.DateOnly))
		sendProgress(progress, noActivitiesUpdate())
		return result, nil
	}

	result.Summary = strava.Summarize(rows)
	sendProgress(progress, summarizeUpdate(result.Summary))

	files, err := formatter.WriteExport(opts.Format, opts.OutputDir, opts.ActivitiesFile, opts.SummaryFile, rows, result.Summary)
	if err != nil {
		return nil, err
	}
	result.Files = files
	sendProgress(progress, writeFilesUpdate(files.ActivitiesFile, files.SummaryFile))
	e.logger.Info("export written", "activities", files.ActivitiesFile, "summary", files.SummaryFile)

	if e.recorder != nil {
		result.Run = e.record(started, opts, result)
		if result.Run != nil {
			sendProgress(progress, recordRunUpdate(result.Run.Sequence()))
		}
	}

	sendProgress(progress, exportCompleteUpdate(result))
	return result, nil
}

func (e *ExportEngine) record(started time.Time, opts ExportOpts, result *ExportResult) *models.ExportRun {
	count, distance := strava.Totals(result.Summary)

	run := models.NewExportRun(started, opts.Since, string(opts.Format))
	run.FinishedAt = e.now()
	run.ActivityCount = count
	run.CategoryCount = len(result.Summary)
	run.TotalDistanceKM = distance
	run.ActivitiesFile = result.Files.ActivitiesFile
	run.SummaryFile = result.Files.SummaryFile

	if err := e.recorder.Create(run); err != nil {
		e.logger.Error("failed to record export run", "error", err)
		return nil
	}
	return run
}
