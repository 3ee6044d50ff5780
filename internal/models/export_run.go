package models

import (
	"errors"
	"time"
)

// ExportRun records one completed activity export.
type ExportRun struct {
	id              string
	sequence        int
	StartedAt       time.Time
	FinishedAt      time.Time
	After           time.Time
	ActivityCount   int
	CategoryCount   int
	TotalDistanceKM float64
	Format          string
	ActivitiesFile  string
	SummaryFile     string
	createdAt       time.Time
	updatedAt       time.Time
	deletedAt       *time.Time
}

// NewExportRun creates an [ExportRun] for an export that fetched activities after the given cut-off.
func NewExportRun(startedAt, after time.Time, format string) *ExportRun {
	now := time.Now()
	return &ExportRun{
		StartedAt: startedAt,
		After:     after,
		Format:    format,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *ExportRun) ID() string { return r.id }
func (r *ExportRun) Sequence() int { return r.sequence }
func (r *ExportRun) CreatedAt() time.Time { return r.createdAt }
func (r *ExportRun) UpdatedAt() time.Time { return r.updatedAt }
func (r *ExportRun) DeletedAt() *time.Time { return r.deletedAt }
func (r *ExportRun) SetID(id string) { r.id = id }
func (r *ExportRun) SetSequence(seq int) { r.sequence = seq }
func (r *ExportRun) SetCreatedAt(t time.Time) { r.createdAt = t }
func (r *ExportRun) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *ExportRun) SetDeletedAt(t *time.Time) { r.deletedAt = t }

// Duration is the wall time the export took.
func (r *ExportRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Validate checks the invariants of a completed run.
func (r *ExportRun) Validate() error {
	switch {
	case r.id == "":
		return errors.New("export run ID is required")
	case r.Format == "":
		return errors.New("export run format is required")
	case r.StartedAt.IsZero() || r.FinishedAt.IsZero():
		return errors.New("export run start and finish times are required")
	case r.FinishedAt.Before(r.StartedAt):
		return errors.New("export run finished before it started")
	case r.ActivityCount < 0 || r.CategoryCount < 0:
		return errors.New("export run counts must not be negative")
	case r.CategoryCount > r.ActivityCount:
		return errors.New("export run has more categories than activities")
	}
	return nil
}
