package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
)

// ExportRunRepository implements [models.Repository] for [models.ExportRun] persistence.
type ExportRunRepository struct {
	db *sql.DB
}

// NewExportRunRepository creates a new [ExportRunRepository] with the given database connection
func NewExportRunRepository(db *sql.DB) *ExportRunRepository {
	return &ExportRunRepository{db: db}
}

const exportRunColumns = `id, sequence, started_at, finished_at, after_ts, activity_count, category_count,
	total_distance_km, format, activities_file, summary_file, created_at, updated_at, deleted_at`

// Create inserts a completed run with generated ID and sequence
func (r *ExportRunRepository) Create(run *models.ExportRun) error {
	run.SetID(shared.GenerateID())
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "export_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	run.SetSequence(sequence)

	query := `INSERT INTO export_runs (` + exportRunColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`

	_, err = r.db.Exec(query,
		run.ID(), sequence, run.StartedAt, run.FinishedAt, run.After,
		run.ActivityCount, run.CategoryCount, run.TotalDistanceKM, run.Format,
		run.ActivitiesFile, run.SummaryFile, run.CreatedAt(), run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert export run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *ExportRunRepository) Get(id string) (*models.ExportRun, error) {
	query := `SELECT ` + exportRunColumns + ` FROM export_runs WHERE id = ? AND deleted_at IS NULL`

	run, err := scanExportRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("export run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query export run: %w", err)
	}
	return run, nil
}

// Delete soft-deletes a run by ID
func (r *ExportRunRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE export_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete export run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("export run not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves runs newest first, excluding soft-deleted runs.
//
// Supported criteria: "format" (string), "since" ([time.Time], on started_at) and "limit" (int).
func (r *ExportRunRepository) List(criteria map[string]any) ([]*models.ExportRun, error) {
	query := `SELECT ` + exportRunColumns + ` FROM export_runs WHERE deleted_at IS NULL`
	args := []any{}

	if format, ok := criteria["format"].(string); ok && format != "" {
		query += " AND format = ?"
		args = append(args, format)
	}
	if since, ok := criteria["since"].(time.Time); ok && !since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, since)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ExportRun
	for rows.Next() {
		run, err := scanExportRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExportRun(s scanner) (*models.ExportRun, error) {
	var (
		id         string
		sequence   int
		startedAt  time.Time
		finishedAt time.Time
		after      time.Time
		activities int
		categories int
		distance   float64
		format     string
		actFile    string
		sumFile    string
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := s.Scan(&id, &sequence, &startedAt, &finishedAt, &after, &activities, &categories,
		&distance, &format, &actFile, &sumFile, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	run := models.NewExportRun(startedAt, after, format)
	run.SetID(id)
	run.SetSequence(sequence)
	run.FinishedAt = finishedAt
	run.ActivityCount = activities
	run.CategoryCount = categories
	run.TotalDistanceKM = distance
	run.ActivitiesFile = actFile
	run.SummaryFile = sumFile
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}
	return run, nil
}
