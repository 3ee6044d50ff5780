// package services defines the PlaylistService interface for the Spotify Web API
package services

import (
	"context"
)

// PlaylistService is the subset of the Spotify Web API needed to build a playlist from a song list.
type PlaylistService interface {
	// CurrentUser returns the profile of the authenticated user.
	CurrentUser(ctx context.Context) (*SpotifyUser, error)

	// SearchTrack returns the best match for a free-text query such as "Song - Artist".
	// Returns [shared.ErrTrackNotFound] when the search has no results.
	SearchTrack(ctx context.Context, query string) (*SpotifyTrack, error)

	// CreatePlaylist creates an empty playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID string, spec PlaylistSpec) (*SpotifyPlaylist, error)

	// AddTracks appends track URIs to a playlist, splitting into requests of at most [MaxTracksPerRequest].
	// batch is called after every successful request.
	AddTracks(ctx context.Context, playlistID string, uris []string, batch func(n, size int)) error
}

// PlaylistSpec describes a playlist to create.
type PlaylistSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}
