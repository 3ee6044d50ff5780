package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/repositories"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/desertthunder/stx/internal/strava"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	logger      *log.Logger
	output      io.Writer
	lookupEnv   func(string) (string, bool)
	openBrowser func(string) error
	now         func() time.Time
	sleep       strava.SleepFunc
	endpoints   Endpoints
	db          *sql.DB
}

// Endpoints overrides the remote URLs. Empty fields select the production endpoints.
type Endpoints struct {
	StravaAPI    string
	StravaToken  string
	SpotifyAPI   string
	SpotifyToken string
	CallbackAddr string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Logger      *log.Logger
	Output      io.Writer
	LookupEnv   func(string) (string, bool)
	OpenBrowser func(string) error
	Now         func() time.Time
	Sleep       strava.SleepFunc
	Endpoints   Endpoints
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		logger:      opts.Logger,
		output:      opts.Output,
		lookupEnv:   opts.LookupEnv,
		openBrowser: opts.OpenBrowser,
		now:         opts.Now,
		sleep:       opts.Sleep,
		endpoints:   opts.Endpoints,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, stravaCommand, spotifyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the configuration once for whichever command runs.
//
// A missing config file falls back to the embedded defaults; environment variables are applied on top.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.config != nil {
		return ctx, nil
	}

	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(r.configPath); err == nil {
		if config, err = shared.LoadConfig(r.configPath); err != nil {
			return ctx, err
		}
		r.logger.Debug("loaded config", "path", r.configPath)
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	if err := config.ApplyEnv(r.lookupEnv); err != nil {
		return ctx, err
	}
	if err := config.Validate(); err != nil {
		return ctx, err
	}

	r.config = config
	return ctx, nil
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// database opens the configured SQLite database on first use and applies pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenMigrated(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	return db, nil
}

// Close releases the database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// credentialStore returns the store configured by export.token_store for provider.
func (r *Runner) credentialStore(provider, tokenFile string) (models.CredentialStore, error) {
	if r.config.Export.TokenStore == "database" {
		db, err := r.database()
		if err != nil {
			return nil, err
		}
		return repositories.NewCredentialRepository(db, provider), nil
	}
	return repositories.NewTokenFile(tokenFile), nil
}

// storeLocation describes where store keeps its credentials, for messages.
func (r *Runner) storeLocation(store models.CredentialStore) string {
	if f, ok := store.(*repositories.TokenFile); ok {
		return f.Path()
	}
	return r.config.Database.Path
}

// loadStored reads the stored set. ok is false when nothing is stored; other failures are logged.
func (r *Runner) loadStored(store models.CredentialStore) (models.CredentialSet, bool) {
	creds, err := store.Load()
	switch {
	case err == nil:
		return creds, true
	case errors.Is(err, shared.ErrNotAuthenticated):
		r.logger.Debug("no stored credentials", "reason", err)
	default:
		r.logger.Warn("failed to load stored credentials", "error", err)
	}
	return models.CredentialSet{}, false
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
