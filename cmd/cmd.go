// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// -v is taken by --verbose.
func init() {
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}
}

// app builds the root command. --config and --verbose are inherited by every subcommand.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "stx",
		Usage:   "Export Strava activities & build Spotify playlists",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output and debug logging",
			},
		},
		Before:   r.before,
		Commands: r.register(),
	}
}

// stravaCommand handles the activity export
func stravaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "strava",
		Usage: "Strava activity operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authorize stx to read your activities using OAuth2",
				Action: r.StravaAuth,
			},
			{
				Name:  "export",
				Usage: "Export recent activities and a per-sport summary",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "days",
						Usage: "Number of days to look back (default from config)",
					},
					&cli.IntFlag{
						Name:  "per-page",
						Usage: "Activities requested per page, 1-200 (default from config)",
					},
					&cli.IntFlag{
						Name:  "max-attempts",
						Usage: "Attempts per page request (default from config)",
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "Directory for the exported files (default from config)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: csv, json or markdown (default from config)",
					},
					&cli.BoolFlag{
						Name:  "tui",
						Usage: "Show interactive progress and summary",
					},
				},
				Action: r.StravaExport,
			},
			{
				Name:  "history",
				Usage: "List previous exports, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Only show exports in this format",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.StravaHistory,
			},
		},
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify playlist operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.SpotifyAuth,
			},
			{
				Name:  "create",
				Usage: "Create a playlist from 'Song - Artist' queries",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Playlist name (default from config)",
					},
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description (default from config)",
					},
					&cli.StringSliceFlag{
						Name:    "songs",
						Aliases: []string{"s"},
						Usage:   "Song in 'Song - Artist' format, repeatable",
					},
					&cli.BoolFlag{
						Name:    "private",
						Aliases: []string{"p"},
						Usage:   "Make playlist private",
					},
				},
				Action: r.SpotifyCreate,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command, a shortcut for `strava export --tui`.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Run the activity export with the interactive TUI",
		Action:  r.TUI,
	}
}
