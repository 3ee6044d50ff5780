package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// MaxPerPage is the largest page size the activity listing endpoint accepts.
const MaxPerPage = 200

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Export      ExportConfig      `toml:"export"`
	Playlist    PlaylistConfig    `toml:"playlist"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Strava  StravaConfig  `toml:"strava"`
	Spotify SpotifyConfig `toml:"spotify"`
}

// StravaConfig contains Strava API credentials.
//
// AccessToken, RefreshToken and ExpiresAt seed the session on first use; once a
// credential store holds a set, the stored values win.
type StravaConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
	ExpiresAt    int64  `toml:"expires_at"`
	RedirectURI  string `toml:"redirect_uri"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// ExportConfig controls the activity export.
type ExportConfig struct {
	DaysBack              int    `toml:"days_back"`
	PerPage               int    `toml:"per_page"`
	MaxAttempts           int    `toml:"max_attempts"`
	PageIntervalMS        int    `toml:"page_interval_ms"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	OutputDir             string `toml:"output_dir"`
	ActivitiesFile        string `toml:"activities_file"`
	SummaryFile           string `toml:"summary_file"`
	Format                string `toml:"format"`
	TokenStore            string `toml:"token_store"`
	TokenFile             string `toml:"token_file"`
	StrictPersist         bool   `toml:"strict_persist"`
}

// PageInterval is the minimum spacing between page requests.
func (e ExportConfig) PageInterval() time.Duration {
	return time.Duration(e.PageIntervalMS) * time.Millisecond
}

// RequestTimeout bounds a single HTTP request.
func (e ExportConfig) RequestTimeout() time.Duration {
	return time.Duration(e.RequestTimeoutSeconds) * time.Second
}

// PlaylistConfig holds the defaults for `spotify create`.
type PlaylistConfig struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Public      bool     `toml:"public"`
	TokenFile   string   `toml:"token_file"`
	Songs       []string `toml:"songs"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides configuration values with the STRAVA_* and SPOTIFY_* environment variables.
//
// lookup is usually [os.LookupEnv].
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("STRAVA_CLIENT_ID", &c.Credentials.Strava.ClientID)
	str("STRAVA_CLIENT_SECRET", &c.Credentials.Strava.ClientSecret)
	str("STRAVA_ACCESS_TOKEN", &c.Credentials.Strava.AccessToken)
	str("STRAVA_REFRESH_TOKEN", &c.Credentials.Strava.RefreshToken)
	if v, ok := lookup("STRAVA_TOKEN_EXPIRES_AT"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: STRAVA_TOKEN_EXPIRES_AT=%q", ErrInvalidConfig, v)
		}
		c.Credentials.Strava.ExpiresAt = n
	}

	str("SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID)
	str("SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret)
	str("SPOTIFY_REDIRECT_URI", &c.Credentials.Spotify.RedirectURI)
	str("SPOTIFY_PLAYLIST_NAME", &c.Playlist.Name)
	str("SPOTIFY_PLAYLIST_DESCRIPTION", &c.Playlist.Description)
	if v, ok := lookup("SPOTIFY_DEFAULT_SONGS"); ok && v != "" {
		var songs []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				songs = append(songs, s)
			}
		}
		c.Playlist.Songs = songs
	}

	return nil
}

// Validate checks the export settings against the limits of the activity API.
func (c *Config) Validate() error {
	e := c.Export
	switch {
	case e.PerPage < 1 || e.PerPage > MaxPerPage:
		return fmt.Errorf("%w: per_page must be between 1 and %d, got %d", ErrInvalidConfig, MaxPerPage, e.PerPage)
	case e.MaxAttempts < 1:
		return fmt.Errorf("%w: max_attempts must be at least 1, got %d", ErrInvalidConfig, e.MaxAttempts)
	case e.DaysBack < 1:
		return fmt.Errorf("%w: days_back must be at least 1, got %d", ErrInvalidConfig, e.DaysBack)
	case e.PageIntervalMS < 0:
		return fmt.Errorf("%w: page_interval_ms must not be negative", ErrInvalidConfig)
	}

	switch e.Format {
	case "csv", "json", "markdown":
	default:
		return fmt.Errorf("%w: unknown export format %q", ErrInvalidConfig, e.Format)
	}

	switch e.TokenStore {
	case "file", "database":
	default:
		return fmt.Errorf("%w: unknown token store %q", ErrInvalidConfig, e.TokenStore)
	}

	return nil
}
