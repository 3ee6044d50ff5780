package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stx/internal/formatter"
	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/repositories"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/desertthunder/stx/internal/strava"
	"github.com/desertthunder/stx/internal/tasks"
	"github.com/desertthunder/stx/internal/ui"
)

const tuiLogFile = "./tmp/stx-tui.log"

// StravaAuth runs the authorization-code flow and stores the resulting tokens.
func (r *Runner) StravaAuth(ctx context.Context, cmd *cli.Command) error {
	sc := r.config.Credentials.Strava

	var missing []string
	if sc.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if sc.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return &strava.ConfigurationError{Missing: missing}
	}

	oauthCfg := strava.OAuthConfig(sc.ClientID, sc.ClientSecret, sc.RedirectURI)
	if r.endpoints.StravaToken != "" {
		oauthCfg.Endpoint.TokenURL = r.endpoints.StravaToken
	}

	tok, err := r.doOAuth(ctx, "Strava", oauthCfg, func(state string) string {
		return strava.AuthCodeURL(oauthCfg, state)
	})
	if err != nil {
		return err
	}

	store, err := r.credentialStore(models.ProviderStrava, r.config.Export.TokenFile)
	if err != nil {
		return err
	}

	creds := strava.CredentialsFromToken(tok, models.CredentialSet{})
	if err := store.Save(creds); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistFailed, err)
	}

	r.logger.Info("strava credentials saved", "store", r.config.Export.TokenStore, "location", r.storeLocation(store))
	r.writePlain("✓ Strava authorization saved to %s\n", r.storeLocation(store))
	if !creds.ExpiresAt.IsZero() {
		r.writePlain("  Access token expires at %s\n", creds.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// StravaExport fetches recent activities and writes the activity and summary tables.
func (r *Runner) StravaExport(ctx context.Context, cmd *cli.Command) error {
	settings, err := r.exportSettings(cmd)
	if err != nil {
		return err
	}
	return r.runExport(ctx, settings, cmd.Bool("tui"))
}

// exportSettings applies the export flags that were given on top of the [export] config section.
func (r *Runner) exportSettings(cmd *cli.Command) (shared.ExportConfig, error) {
	e := r.config.Export

	if cmd.IsSet("days") {
		e.DaysBack = cmd.Int("days")
	}
	if cmd.IsSet("per-page") {
		e.PerPage = cmd.Int("per-page")
	}
	if cmd.IsSet("max-attempts") {
		e.MaxAttempts = cmd.Int("max-attempts")
	}
	if cmd.IsSet("output-dir") {
		e.OutputDir = cmd.String("output-dir")
	}
	if cmd.IsSet("format") {
		format, err := formatter.ParseFormat(cmd.String("format"))
		if err != nil {
			return e, err
		}
		e.Format = string(format)
	}

	config := *r.config
	config.Export = e
	if err := config.Validate(); err != nil {
		return e, err
	}
	return e, nil
}

// stravaCredentials returns the configured tokens, replaced by the stored set when one exists.
// The store holds the most recently rotated refresh token.
func (r *Runner) stravaCredentials(store models.CredentialStore) models.CredentialSet {
	sc := r.config.Credentials.Strava
	creds := models.NewCredentialSet(sc.AccessToken, sc.RefreshToken, sc.ExpiresAt)
	if stored, ok := r.loadStored(store); ok {
		r.logger.Debug("using stored credentials", "location", r.storeLocation(store))
		creds = stored
	}
	return creds
}

func (r *Runner) runExport(ctx context.Context, e shared.ExportConfig, useTUI bool) error {
	if useTUI {
		fileLogger, err := shared.NewFileLogger(tuiLogFile)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		r.SetLogger(fileLogger)
	}

	format, err := formatter.ParseFormat(e.Format)
	if err != nil {
		return err
	}

	store, err := r.credentialStore(models.ProviderStrava, e.TokenFile)
	if err != nil {
		return err
	}

	creds := r.stravaCredentials(store)
	if creds.IsZero() {
		return fmt.Errorf("%w: no Strava tokens; run `stx strava auth` or set STRAVA_ACCESS_TOKEN and STRAVA_REFRESH_TOKEN", shared.ErrMissingCredentials)
	}
	if creds.Expired(r.now()) {
		r.logger.Info("access token expired, it will be refreshed on first use", "expired_at", creds.ExpiresAt)
	}

	sc := r.config.Credentials.Strava
	refresher := strava.NewTokenRefresher(sc.ClientID, sc.ClientSecret, store, r.logger)
	if r.endpoints.StravaToken != "" {
		refresher.TokenURL = r.endpoints.StravaToken
	}

	exec := strava.NewExecutor(strava.ExecutorConfig{
		BaseURL:        r.endpoints.StravaAPI,
		Credentials:    creds,
		Refresher:      refresher,
		MaxAttempts:    e.MaxAttempts,
		RequestTimeout: e.RequestTimeout(),
		Sleep:          r.sleep,
		Now:            r.now,
		StrictPersist:  e.StrictPersist,
		Logger:         r.logger,
	})

	var recorder tasks.RunRecorder
	if db, err := r.database(); err != nil {
		r.logger.Warn("export history disabled", "error", err)
	} else {
		recorder = repositories.NewExportRunRepository(db)
	}

	after := r.now().AddDate(0, 0, -e.DaysBack)
	opts := tasks.ExportOpts{
		Since:          after,
		PerPage:        e.PerPage,
		PageInterval:   e.PageInterval(),
		Format:         format,
		OutputDir:      e.OutputDir,
		ActivitiesFile: e.ActivitiesFile,
		SummaryFile:    e.SummaryFile,
	}
	if e.PageIntervalMS == 0 {
		opts.PageInterval = -1
	}

	r.logger.Info("fetching activities", "after", after.Format(time.DateOnly), "per_page", e.PerPage)
	engine := tasks.NewExportEngine(exec, recorder, r.logger)

	var result *tasks.ExportResult
	if useTUI {
		result, err = r.runExportTUI(ctx, engine, opts)
	} else {
		r.writePlain("Fetching activities since %s...\n", after.Format(time.DateOnly))
		result, err = engine.Run(ctx, nil, opts)
	}

	stats := exec.Stats()
	r.logger.Debug("request stats",
		"requests", stats.Requests, "rate_limit_waits", stats.RateLimitWaits,
		"refreshes", stats.Refreshes, "retries", stats.Retries, "waited", stats.Waited)

	if err != nil {
		return err
	}
	if !useTUI {
		r.printExport(result)
	}
	return nil
}

func (r *Runner) runExportTUI(ctx context.Context, engine *tasks.ExportEngine, opts tasks.ExportOpts) (*tasks.ExportResult, error) {
	model := ui.NewModel(ctx, engine, opts)
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}
	return model.Result()
}

func (r *Runner) printExport(result *tasks.ExportResult) {
	if len(result.Activities) == 0 {
		r.writePlain("No activities found for the specified time period.\n")
		return
	}

	r.writePlain("Fetched %d activities across %d pages\n", len(result.Activities), result.Pages)
	r.writePlain("✓ Activities written to %s\n", result.Files.ActivitiesFile)
	r.writePlain("✓ Summary written to %s\n\n", result.Files.SummaryFile)

	r.writePlainHeader("Summary by sport")
	for _, line := range formatter.SummaryLines(result.Summary) {
		r.writePlain("  %s\n", line)
	}

	if result.Run != nil {
		r.writePlain("\nRecorded as export #%d\n", result.Run.Sequence())
	}
}

// StravaHistory lists recorded export runs.
func (r *Runner) StravaHistory(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if cmd.IsSet("format") {
		format, err := formatter.ParseFormat(cmd.String("format"))
		if err != nil {
			return err
		}
		criteria["format"] = string(format)
	}

	runs, err := repositories.NewExportRunRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(historyEntries(runs), true)
	}

	if len(runs) == 0 {
		return r.writePlain("No exports recorded yet.\n")
	}

	r.writePlainHeader("Export history")
	for _, run := range runs {
		r.writePlain("#%-4d %s  after %s  %4d activities  %2d sports  %9.2f km  %s\n",
			run.Sequence(),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.After.Local().Format(time.DateOnly),
			run.ActivityCount,
			run.CategoryCount,
			run.TotalDistanceKM,
			run.Format,
		)
	}
	return nil
}

type historyEntry struct {
	ID              string    `json:"id"`
	Sequence        int       `json:"sequence"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	After           time.Time `json:"after"`
	ActivityCount   int       `json:"activity_count"`
	CategoryCount   int       `json:"category_count"`
	TotalDistanceKM float64   `json:"total_distance_km"`
	Format          string    `json:"format"`
	ActivitiesFile  string    `json:"activities_file"`
	SummaryFile     string    `json:"summary_file"`
}

func historyEntries(runs []*models.ExportRun) []historyEntry {
	entries := make([]historyEntry, len(runs))
	for i, run := range runs {
		entries[i] = historyEntry{
			ID:              run.ID(),
			Sequence:        run.Sequence(),
			StartedAt:       run.StartedAt,
			FinishedAt:      run.FinishedAt,
			After:           run.After,
			ActivityCount:   run.ActivityCount,
			CategoryCount:   run.CategoryCount,
			TotalDistanceKM: run.TotalDistanceKM,
			Format:          run.Format,
			ActivitiesFile:  run.ActivitiesFile,
			SummaryFile:     run.SummaryFile,
		}
	}
	return entries
}
