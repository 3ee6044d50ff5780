// package repositories provides persistence layer implementations for all model types.
package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/stx/internal/models"
)

var (
	_ models.Repository[*models.ExportRun] = (*ExportRunRepository)(nil)
	_ models.CredentialStore               = (*CredentialRepository)(nil)
	_ models.CredentialStore               = (*TokenFile)(nil)
)

// sequenceTables lists the tables backed by a {table}_sequence counter.
var sequenceTables = map[string]bool{
	"export_runs": true,
}

// NextSequence atomically increments and returns the next sequence number for the given table.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !sequenceTables[table] {
		return 0, fmt.Errorf("no sequence for table %q", table)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	if _, err := tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable)); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}
