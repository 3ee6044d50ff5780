package repositories

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newRun(started time.Time, activities, categories int, distance float64) *models.ExportRun {
	run := models.NewExportRun(started, started.AddDate(0, 0, -730), "csv")
	run.FinishedAt = started.Add(90 * time.Second)
	run.ActivityCount = activities
	run.CategoryCount = categories
	run.TotalDistanceKM = distance
	run.ActivitiesFile = "strava_activities_last_2_years.csv"
	run.SummaryFile = "strava_summary_by_sport.csv"
	return run
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "export_runs")
		if err != nil {
			t.Fatalf("NextSequence failed: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "credentials; DROP TABLE credentials"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}

func TestExportRunRepository(t *testing.T) {
	started := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("Create", func(t *testing.T) {
		repo := NewExportRunRepository(setupTestDB(t))
		run := newRun(started, 12, 3, 84.5)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if run.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", run.Sequence())
		}
	})

	t.Run("Create rejects invalid runs", func(t *testing.T) {
		repo := NewExportRunRepository(setupTestDB(t))
		run := newRun(started, 1, 2, 1)

		if err := repo.Create(run); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewExportRunRepository(setupTestDB(t))
		run := newRun(started, 12, 3, 84.5)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if got.ActivityCount != 12 || got.CategoryCount != 3 || got.TotalDistanceKM != 84.5 {
			t.Errorf("unexpected totals: %+v", got)
		}
		if !got.StartedAt.Equal(started) {
			t.Errorf("expected started_at %v, got %v", started, got.StartedAt)
		}
		if !got.After.Equal(run.After) {
			t.Errorf("expected after %v, got %v", run.After, got.After)
		}
		if got.Duration() != 90*time.Second {
			t.Errorf("expected duration 90s, got %v", got.Duration())
		}
		if got.SummaryFile != run.SummaryFile {
			t.Errorf("expected summary file %q, got %q", run.SummaryFile, got.SummaryFile)
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		repo := NewExportRunRepository(setupTestDB(t))
		if _, err := repo.Get("nonexistent-id"); err == nil {
			t.Fatal("expected error when getting nonexistent run")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewExportRunRepository(setupTestDB(t))
		run := newRun(started, 1, 1, 5)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := repo.Get(run.ID()); err == nil {
			t.Error("soft-deleted run should not be retrievable")
		}
		if err := repo.Delete(run.ID()); err == nil {
			t.Error("expected error when deleting twice")
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewExportRunRepository(setupTestDB(t))
		for i := range 3 {
			run := newRun(started.AddDate(0, 0, i), i+1, 1, float64(i))
			if i == 2 {
				run.Format = "json"
			}
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run %d: %v", i, err)
			}
		}

		runs, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].Sequence() != 3 {
			t.Errorf("expected newest run first, got sequence %d", runs[0].Sequence())
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     int
		}{
			{name: "limit", criteria: map[string]any{"limit": 2}, want: 2},
			{name: "format", criteria: map[string]any{"format": "json"}, want: 1},
			{name: "since", criteria: map[string]any{"since": started.AddDate(0, 0, 1)}, want: 2},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				runs, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list runs: %v", err)
				}
				if len(runs) != tt.want {
					t.Errorf("expected %d runs, got %d", tt.want, len(runs))
				}
			})
		}
	})
}

func TestCredentialRepository(t *testing.T) {
	expires := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Load before Save", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t), models.ProviderStrava)
		if _, err := repo.Load(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Save replaces the whole set", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCredentialRepository(db, models.ProviderStrava)

		if err := repo.Save(models.CredentialSet{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: expires}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := repo.Save(models.CredentialSet{AccessToken: "a2", RefreshToken: "r2"}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := repo.Load()
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got.AccessToken != "a2" || got.RefreshToken != "r2" {
			t.Errorf("unexpected set %+v", got)
		}
		if !got.ExpiresAt.IsZero() {
			t.Errorf("expiry should be replaced too, got %v", got.ExpiresAt)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM credentials").Scan(&count); err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("expected one row per provider, got %d", count)
		}
	})

	t.Run("providers are isolated", func(t *testing.T) {
		db := setupTestDB(t)
		strava := NewCredentialRepository(db, models.ProviderStrava)
		spotify := NewCredentialRepository(db, models.ProviderSpotify)

		if err := strava.Save(models.CredentialSet{AccessToken: "s", RefreshToken: "sr", ExpiresAt: expires}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if _, err := spotify.Load(); err == nil {
			t.Error("spotify should have no credentials")
		}

		stored, err := strava.Get()
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if stored.Provider != models.ProviderStrava || !stored.Credentials.ExpiresAt.Equal(expires) {
			t.Errorf("unexpected stored credential %+v", stored)
		}

		if err := strava.Delete(); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := strava.Load(); err == nil {
			t.Error("expected no credentials after delete")
		}
	})

	t.Run("rejects empty access token", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t), models.ProviderStrava)
		if err := repo.Save(models.CredentialSet{RefreshToken: "r"}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestTokenFile(t *testing.T) {
	expires := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	t.Run("missing file", func(t *testing.T) {
		f := NewTokenFile(filepath.Join(t.TempDir(), "token.toml"))
		if _, err := f.Load(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".stx", "token.toml")
		f := NewTokenFile(path)
		want := models.CredentialSet{AccessToken: "a", RefreshToken: "r", ExpiresAt: expires}

		if err := f.Save(want); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := f.Load()
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.ExpiresAt.Equal(expires) {
			t.Errorf("expected %+v, got %+v", want, got)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("failed to stat token file: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
		}
	})

	t.Run("overwrites wholesale", func(t *testing.T) {
		f := NewTokenFile(filepath.Join(t.TempDir(), "token.toml"))
		if err := f.Save(models.CredentialSet{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: expires}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := f.Save(models.CredentialSet{AccessToken: "a2", RefreshToken: "r2"}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := f.Load()
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got.RefreshToken != "r2" {
			t.Errorf("expected rotated refresh token, got %q", got.RefreshToken)
		}

		entries, _ := os.ReadDir(filepath.Dir(f.Path()))
		if len(entries) != 1 {
			t.Errorf("expected no temp files left behind, got %d entries", len(entries))
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.toml")
		if err := os.WriteFile(path, []byte("access_token = ["), 0600); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
		if _, err := NewTokenFile(path).Load(); err == nil {
			t.Error("expected parse error")
		}
	})
}
