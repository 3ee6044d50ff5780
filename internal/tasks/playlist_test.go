package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/stx/internal/services"
	"github.com/desertthunder/stx/internal/shared"
)

type mockPlaylistService struct {
	user       *services.SpotifyUser
	tracks     map[string]*services.SpotifyTrack
	searchErrs map[string]error
	userErr    error
	createErr  error
	addErr     error
	created    []services.PlaylistSpec
	added      []string
}

func (m *mockPlaylistService) CurrentUser(ctx context.Context) (*services.SpotifyUser, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	return m.user, nil
}

func (m *mockPlaylistService) SearchTrack(ctx context.Context, query string) (*services.SpotifyTrack, error) {
	if err, ok := m.searchErrs[query]; ok {
		return nil, err
	}
	if track, ok := m.tracks[query]; ok {
		return track, nil
	}
	return nil, shared.ErrTrackNotFound
}

func (m *mockPlaylistService) CreatePlaylist(ctx context.Context, userID string, spec services.PlaylistSpec) (*services.SpotifyPlaylist, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, spec)
	return &services.SpotifyPlaylist{ID: "pl1", Name: spec.Name, Public: spec.Public}, nil
}

func (m *mockPlaylistService) AddTracks(ctx context.Context, playlistID string, uris []string, batch func(n, size int)) error {
	if m.addErr != nil {
		return m.addErr
	}
	for i, n := 0, 1; i < len(uris); i, n = i+services.MaxTracksPerRequest, n+1 {
		chunk := uris[i:min(i+services.MaxTracksPerRequest, len(uris))]
		m.added = append(m.added, chunk...)
		batch(n, len(chunk))
	}
	return nil
}

func track(id, name, artist string) *services.SpotifyTrack {
	return &services.SpotifyTrack{
		ID:      id,
		Name:    name,
		URI:     "spotify:track:" + id,
		Artists: []services.SpotifyArtist{{Name: artist}},
	}
}

func newMockPlaylistService() *mockPlaylistService {
	return &mockPlaylistService{
		user: &services.SpotifyUser{ID: "u1", DisplayName: "Runner"},
		tracks: map[string]*services.SpotifyTrack{
			"Sweet Caroline - Neil Diamond": track("t1", "Sweet Caroline", "Neil Diamond"),
			"In Da Club - 50 Cent":          track("t2", "In Da Club", "50 Cent"),
		},
	}
}

func TestPlaylistBuilder(t *testing.T) {
	ctx := context.Background()
	spec := services.PlaylistSpec{Name: "Temple of Chills", Description: "test", Public: false}

	t.Run("creates playlist with found tracks", func(t *testing.T) {
		svc := newMockPlaylistService()
		svc.searchErrs = map[string]error{"Broken - Query": errors.New("status 500")}
		progress := make(chan ProgressUpdate, 16)

		result, err := NewPlaylistBuilder(svc, nil).Run(ctx, progress, PlaylistOpts{
			Spec:  spec,
			Songs: []string{"Sweet Caroline - Neil Diamond", "Unknown - Nobody", "In Da Club - 50 Cent", "Broken - Query"},
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if got := result.Found(); len(got) != 2 || got[0] != "spotify:track:t1" || got[1] != "spotify:track:t2" {
			t.Errorf("unexpected found URIs: %v", got)
		}
		if got := result.NotFound(); len(got) != 2 || got[0] != "Unknown - Nobody" || got[1] != "Broken - Query" {
			t.Errorf("unexpected not found: %v", got)
		}
		if result.Added != 2 || len(svc.added) != 2 {
			t.Errorf("expected 2 added tracks, got %d", result.Added)
		}
		if len(svc.created) != 1 || svc.created[0].Public {
			t.Errorf("expected one private playlist, got %+v", svc.created)
		}
		if result.Playlist == nil || result.Playlist.ID != "pl1" {
			t.Errorf("unexpected playlist: %+v", result.Playlist)
		}

		var searches int
		for _, u := range drain(progress) {
			if u.Phase == SearchTracks {
				searches++
			}
		}
		if searches != 4 {
			t.Errorf("expected 4 search updates, got %d", searches)
		}
	})

	t.Run("no matches creates nothing", func(t *testing.T) {
		svc := newMockPlaylistService()

		result, err := NewPlaylistBuilder(svc, nil).Run(ctx, nil, PlaylistOpts{Spec: spec, Songs: []string{"Unknown - Nobody"}})
		if !errors.Is(err, shared.ErrNoTracks) {
			t.Fatalf("expected ErrNoTracks, got %v", err)
		}
		if len(svc.created) != 0 {
			t.Error("expected no playlist to be created")
		}
		if len(result.NotFound()) != 1 {
			t.Errorf("expected 1 not found, got %d", len(result.NotFound()))
		}
	})

	t.Run("no songs", func(t *testing.T) {
		_, err := NewPlaylistBuilder(newMockPlaylistService(), nil).Run(ctx, nil, PlaylistOpts{Spec: spec})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Fatalf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("batches large lists", func(t *testing.T) {
		svc := newMockPlaylistService()
		var songs []string
		for i := range 250 {
			q := fmt.Sprintf("Song %d - Artist", i)
			svc.tracks[q] = track(fmt.Sprintf("x%d", i), q, "Artist")
			songs = append(songs, q)
		}
		progress := make(chan ProgressUpdate, 512)

		result, err := NewPlaylistBuilder(svc, nil).Run(ctx, progress, PlaylistOpts{Spec: spec, Songs: songs})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.Added != 250 {
			t.Errorf("expected 250 added, got %d", result.Added)
		}

		var batches []ProgressUpdate
		for _, u := range drain(progress) {
			if u.Phase == AddTracks {
				batches = append(batches, u)
			}
		}
		if len(batches) != 3 || batches[2].Total != 3 {
			t.Errorf("expected 3 batches of 3, got %+v", batches)
		}
	})

	t.Run("create failure", func(t *testing.T) {
		svc := newMockPlaylistService()
		svc.createErr = &services.APIError{StatusCode: 403, Message: "forbidden"}

		_, err := NewPlaylistBuilder(svc, nil).Run(ctx, nil, PlaylistOpts{Spec: spec, Songs: []string{"In Da Club - 50 Cent"}})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("add failure keeps playlist", func(t *testing.T) {
		svc := newMockPlaylistService()
		svc.addErr = errors.New("boom")

		result, err := NewPlaylistBuilder(svc, nil).Run(ctx, nil, PlaylistOpts{Spec: spec, Songs: []string{"In Da Club - 50 Cent"}})
		if err == nil {
			t.Fatal("expected error")
		}
		if result.Playlist == nil {
			t.Error("expected partial result to carry the playlist")
		}
	})

	t.Run("user failure", func(t *testing.T) {
		svc := newMockPlaylistService()
		svc.userErr = shared.ErrNotAuthenticated

		_, err := NewPlaylistBuilder(svc, nil).Run(ctx, nil, PlaylistOpts{Spec: spec, Songs: []string{"x"}})
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}
