package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
)

// CredentialRepository stores the credential set of one provider in the credentials table.
type CredentialRepository struct {
	db       *sql.DB
	provider string
}

// NewCredentialRepository creates a [CredentialRepository] for provider (e.g. [models.ProviderStrava]).
func NewCredentialRepository(db *sql.DB, provider string) *CredentialRepository {
	return &CredentialRepository{db: db, provider: provider}
}

// Load returns the stored set, or [shared.ErrNotAuthenticated] when none was saved yet.
func (r *CredentialRepository) Load() (models.CredentialSet, error) {
	stored, err := r.Get()
	if err != nil {
		return models.CredentialSet{}, err
	}
	return stored.Credentials, nil
}

// Get returns the stored set together with its provider and update time.
func (r *CredentialRepository) Get() (*models.StoredCredential, error) {
	query := `SELECT access_token, refresh_token, expires_at, updated_at FROM credentials WHERE provider = ?`

	var (
		access    string
		refresh   string
		expiresAt sql.NullTime
		updatedAt time.Time
	)
	err := r.db.QueryRow(query, r.provider).Scan(&access, &refresh, &expiresAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no stored %s credentials", shared.ErrNotAuthenticated, r.provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	stored := &models.StoredCredential{
		Provider:    r.provider,
		Credentials: models.CredentialSet{AccessToken: access, RefreshToken: refresh},
		UpdatedAt:   updatedAt,
	}
	if expiresAt.Valid {
		stored.Credentials.ExpiresAt = expiresAt.Time
	}
	return stored, nil
}

// Save replaces the stored set in a single statement.
func (r *CredentialRepository) Save(c models.CredentialSet) error {
	if c.AccessToken == "" {
		return fmt.Errorf("%w: access token is required", shared.ErrInvalidArgument)
	}

	var expiresAt sql.NullTime
	if !c.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: c.ExpiresAt, Valid: true}
	}

	query := `
		INSERT INTO credentials (provider, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, r.provider, c.AccessToken, c.RefreshToken, expiresAt, time.Now()); err != nil {
		return fmt.Errorf("failed to save %s credentials: %w", r.provider, err)
	}
	return nil
}

// Delete removes the stored set.
func (r *CredentialRepository) Delete() error {
	if _, err := r.db.Exec(`DELETE FROM credentials WHERE provider = ?`, r.provider); err != nil {
		return fmt.Errorf("failed to delete %s credentials: %w", r.provider, err)
	}
	return nil
}
