package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/stx/internal/services"
	"github.com/desertthunder/stx/internal/shared"
)

// PlaylistOpts describes the playlist to build.
type PlaylistOpts struct {
	Spec  services.PlaylistSpec
	Songs []string // "Song - Artist" queries
}

// SongMatch is the search outcome for one query. Track is nil when nothing matched.
type SongMatch struct {
	Query string
	Track *services.SpotifyTrack
	Err   error
}

// PlaylistResult contains the outcome of [PlaylistBuilder.Run].
type PlaylistResult struct {
	User     *services.SpotifyUser
	Playlist *services.SpotifyPlaylist
	Matches  []SongMatch
	Added    int
}

// Found returns the URIs of the matched tracks in query order.
func (r *PlaylistResult) Found() []string {
	var uris []string
	for _, m := range r.Matches {
		if m.Track != nil {
			uris = append(uris, m.Track.URI)
		}
	}
	return uris
}

// NotFound returns the queries without a match.
func (r *PlaylistResult) NotFound() []string {
	var queries []string
	for _, m := range r.Matches {
		if m.Track == nil {
			queries = append(queries, m.Query)
		}
	}
	return queries
}

// PlaylistBuilder creates a playlist from a list of song queries.
type PlaylistBuilder struct {
	svc    services.PlaylistService
	logger *log.Logger
}

// NewPlaylistBuilder creates a builder over an authenticated service.
func NewPlaylistBuilder(svc services.PlaylistService, logger *log.Logger) *PlaylistBuilder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PlaylistBuilder{svc: svc, logger: logger}
}

// Run searches every song, creates the playlist, and adds the found tracks.
//
// A failed search marks the song as not found and the run continues. When no song matched,
// no playlist is created and [shared.ErrNoTracks] is returned. The partial result is returned
// alongside any error.
func (b *PlaylistBuilder) Run(ctx context.Context, progress chan<- ProgressUpdate, opts PlaylistOpts) (*PlaylistResult, error) {
	result := &PlaylistResult{}

	if len(opts.Songs) == 0 {
		return result, fmt.Errorf("%w: no songs given", shared.ErrMissingArgument)
	}

	user, err := b.svc.CurrentUser(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to get current user: %w", err)
	}
	result.User = user
	sendProgress(progress, fetchUserUpdate(user))

	total := len(opts.Songs)
	for i, song := range opts.Songs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		m := SongMatch{Query: song}
		track, err := b.svc.SearchTrack(ctx, song)
		if err != nil {
			m.Err = err
			b.logger.Warn("track search failed", "query", song, "error", err)
		} else {
			m.Track = track
		}
		result.Matches = append(result.Matches, m)
		sendProgress(progress, searchTrackUpdate(i+1, total, m))
	}

	uris := result.Found()
	if len(uris) == 0 {
		return result, fmt.Errorf("%w: none of %d songs matched", shared.ErrNoTracks, total)
	}

	pl, err := b.svc.CreatePlaylist(ctx, user.ID, opts.Spec)
	if err != nil {
		return result, fmt.Errorf("failed to create playlist: %w", err)
	}
	result.Playlist = pl
	sendProgress(progress, createPlaylistUpdate(pl))

	batches := (len(uris) + services.MaxTracksPerRequest - 1) / services.MaxTracksPerRequest
	err = b.svc.AddTracks(ctx, pl.ID, uris, func(n, size int) {
		result.Added += size
		sendProgress(progress, addTracksUpdate(n, batches, size))
	})
	if err != nil {
		return result, fmt.Errorf("failed to add tracks to playlist: %w", err)
	}

	b.logger.Info("playlist created", "name", pl.Name, "id", pl.ID, "tracks", result.Added)
	return result, nil
}
