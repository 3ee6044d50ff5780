package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/services"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/desertthunder/stx/internal/tasks"
)

// defaultSongs is used when neither --songs, the config, nor SPOTIFY_DEFAULT_SONGS name any.
var defaultSongs = []string{
	"Sweet Caroline - Neil Diamond",
	"In Da Club - 50 Cent",
	"Drop It Like It's Hot - Snoop Dogg",
	"Bebot - Black Eyed Peas",
	"Livin' la Vida Loca - Ricky Martin",
}

func (r *Runner) spotifyService() (*services.SpotifyService, error) {
	sc := r.config.Credentials.Spotify
	svc, err := services.NewSpotifyService(sc.ClientID, sc.ClientSecret, sc.RedirectURI)
	if err != nil {
		return nil, err
	}
	if r.endpoints.SpotifyAPI != "" {
		svc.WithEndpoints(r.endpoints.SpotifyAPI, r.endpoints.SpotifyToken)
	}
	return svc, nil
}

// spotifyLogin runs the authorization-code flow and saves the token to store.
func (r *Runner) spotifyLogin(ctx context.Context, svc *services.SpotifyService, store models.CredentialStore) (models.CredentialSet, error) {
	tok, err := r.doOAuth(ctx, svc.Name(), svc.OAuthConfig(), svc.GetAuthURL)
	if err != nil {
		return models.CredentialSet{}, err
	}

	creds := models.FromToken(tok, models.CredentialSet{})
	if err := store.Save(creds); err != nil {
		return creds, fmt.Errorf("%w: %v", shared.ErrPersistFailed, err)
	}
	r.logger.Info("spotify token saved", "location", r.storeLocation(store))
	return creds, nil
}

// SpotifyAuth authenticates with Spotify and stores the token.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.spotifyService()
	if err != nil {
		return err
	}

	store, err := r.credentialStore(models.ProviderSpotify, r.config.Playlist.TokenFile)
	if err != nil {
		return err
	}

	creds, err := r.spotifyLogin(ctx, svc, store)
	if err != nil {
		return err
	}

	svc.Authenticate(ctx, creds.Token())
	user, err := svc.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify token: %w", err)
	}

	r.writePlain("✓ Logged in as: %s\n", user.DisplayName)
	r.writePlain("  Token saved to %s\n", r.storeLocation(store))
	return nil
}

// SpotifyCreate builds a playlist from song queries.
func (r *Runner) SpotifyCreate(ctx context.Context, cmd *cli.Command) error {
	pc := r.config.Playlist
	verbose := cmd.Bool("verbose")

	spec := services.PlaylistSpec{Name: pc.Name, Description: pc.Description, Public: pc.Public}
	if cmd.IsSet("name") {
		spec.Name = cmd.String("name")
	}
	if cmd.IsSet("description") {
		spec.Description = cmd.String("description")
	}
	if cmd.Bool("private") {
		spec.Public = false
	}

	songs := cmd.StringSlice("songs")
	if len(songs) == 0 {
		songs = pc.Songs
	}
	if len(songs) == 0 {
		songs = defaultSongs
	}

	svc, err := r.spotifyService()
	if err != nil {
		return err
	}

	r.writePlainHeader("Spotify Playlist Creator")
	r.writePlain("Playlist: %s\n", spec.Name)
	r.writePlain("Description: %s\n", spec.Description)
	r.writePlain("Visibility: %s\n", visibility(spec.Public))
	r.writePlain("Songs to add: %d\n", len(songs))
	if verbose {
		r.writePlainln("Song list:")
		for i, song := range songs {
			r.writePlain("  %d. %s\n", i+1, song)
		}
	}

	store, err := r.credentialStore(models.ProviderSpotify, pc.TokenFile)
	if err != nil {
		return err
	}

	r.writePlainln("Authenticating with Spotify...")
	creds, ok := r.loadStored(store)
	if !ok {
		if creds, err = r.spotifyLogin(ctx, svc, store); err != nil {
			return err
		}
	}

	svc.SetTokenRefreshCallback(func(tok *oauth2.Token) {
		creds = models.FromToken(tok, creds)
		if err := store.Save(creds); err != nil {
			r.logger.Error("failed to save refreshed spotify token", "error", err)
		}
	})
	svc.Authenticate(ctx, creds.Token())

	result, err := r.buildPlaylist(ctx, svc, tasks.PlaylistOpts{Spec: spec, Songs: songs}, verbose)

	if len(result.Matches) > 0 {
		r.writePlainln("Search Results:")
		r.writePlain("  Found: %d songs\n", len(result.Found()))
		if notFound := result.NotFound(); len(notFound) > 0 {
			r.writePlain("  Not found: %d songs\n", len(notFound))
			for _, song := range notFound {
				r.writePlain("    - %s\n", song)
			}
		}
	}

	switch {
	case errors.Is(err, shared.ErrNoTracks):
		r.writePlain("No tracks found. Cannot create playlist.\n")
		return err
	case err != nil && result.Playlist != nil:
		r.writePlainln("Failed to create playlist completely.")
		return err
	case err != nil:
		return err
	}

	r.writePlain("Successfully added %d tracks to playlist!\n", result.Added)
	r.writePlainln("Playlist '%s' created successfully!", result.Playlist.Name)
	r.writePlain("Playlist URL: %s\n", result.Playlist.URL())
	r.writePlain("Open in Spotify: %s\n", result.Playlist.URI)
	return nil
}

// buildPlaylist runs the builder, echoing progress as it arrives. Per-song lines need --verbose.
func (r *Runner) buildPlaylist(ctx context.Context, svc services.PlaylistService, opts tasks.PlaylistOpts, verbose bool) (*tasks.PlaylistResult, error) {
	progress := make(chan tasks.ProgressUpdate, 64)

	var (
		result *tasks.PlaylistResult
		err    error
	)
	go func() {
		result, err = tasks.NewPlaylistBuilder(svc, r.logger).Run(ctx, progress, opts)
		close(progress)
	}()

	for update := range progress {
		switch update.Phase {
		case tasks.FetchUser, tasks.CreatePlaylist:
			r.writePlain("%s\n", update.Message)
		case tasks.SearchTracks, tasks.AddTracks:
			if verbose {
				r.writePlain("  %s\n", update.Message)
			}
		}
	}

	return result, err
}

func visibility(public bool) string {
	if public {
		return "Public"
	}
	return "Private"
}
