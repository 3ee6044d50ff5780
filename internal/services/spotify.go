// Spotify API implementation of [PlaylistService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/desertthunder/stx/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// MaxTracksPerRequest is the number of items the add-items endpoint accepts per call.
	MaxTracksPerRequest = 100
)

// SpotifyScopes are the scopes needed to create public and private playlists.
var SpotifyScopes = []string{
	"playlist-modify-public",
	"playlist-modify-private",
	"user-read-private",
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

// Artist returns the name of the first credited artist.
func (t SpotifyTrack) Artist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Owner        Owner        `json:"owner"`
	Public       bool         `json:"public"`
	URI          string       `json:"uri"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// URL returns the open.spotify.com link of the playlist.
func (p SpotifyPlaylist) URL() string { return p.ExternalURLs.Spotify }

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// APIError is a non-2xx response from the Web API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return shared.ErrAPIRequest }

// SpotifyService implements [PlaylistService].
// Uses [oauth2] for authentication and refreshes the access token transparently.
type SpotifyService struct {
	config     *oauth2.Config
	baseURL    string
	token      *oauth2.Token
	httpClient *http.Client
	onRefresh  func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 client settings.
func NewSpotifyService(clientID, clientSecret, redirectURI string) (*SpotifyService, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing Spotify client_id", shared.ErrMissingCredentials)
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing Spotify client_secret", shared.ErrMissingCredentials)
	}
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		baseURL:    spotifyBaseURL,
		httpClient: http.DefaultClient,
	}, nil
}

// WithEndpoints points the service at different API and token URLs.
func (s *SpotifyService) WithEndpoints(baseURL, tokenURL string) *SpotifyService {
	s.baseURL = strings.TrimRight(baseURL, "/")
	if tokenURL != "" {
		s.config.Endpoint.TokenURL = tokenURL
	}
	return s
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// OAuthConfig exposes the OAuth2 configuration for the authorization-code flow.
func (s *SpotifyService) OAuthConfig() *oauth2.Config { return s.config }

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and authenticates the service with it.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	s.Authenticate(ctx, token)
	return token, nil
}

// SetTokenRefreshCallback registers fn to receive every token obtained by a refresh.
// It must be called before [SpotifyService.Authenticate].
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onRefresh = fn
}

// Authenticate sets the token used for API calls.
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) {
	s.token = token
	src := &notifyingTokenSource{
		base:    s.config.TokenSource(ctx, token),
		current: token.AccessToken,
		notify:  s.onRefresh,
	}
	s.httpClient = oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, src))
}

// notifyingTokenSource reports tokens whose access token differs from the last one seen.
type notifyingTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	current string
	notify  func(*oauth2.Token)
}

func (n *notifyingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := n.base.Token()
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	changed := tok.AccessToken != n.current
	n.current = tok.AccessToken
	n.mu.Unlock()

	if changed && n.notify != nil {
		n.notify(tok)
	}
	return tok, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error.Message
		}
		return apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchTrack searches the catalog and returns the first track.
func (s *SpotifyService) SearchTrack(ctx context.Context, query string) (*SpotifyTrack, error) {
	q := url.Values{"q": {query}, "type": {"track"}, "limit": {"1"}}

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &response); err != nil {
		return nil, err
	}
	if len(response.Tracks.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, query)
	}
	return &response.Tracks.Items[0], nil
}

// CreatePlaylist creates an empty playlist for userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID string, spec PlaylistSpec) (*SpotifyPlaylist, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, spec, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracks appends uris to the playlist in batches of [MaxTracksPerRequest].
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string, batch func(n, size int)) error {
	if len(uris) == 0 {
		return shared.ErrNoTracks
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	for i, n := 0, 1; i < len(uris); i, n = i+MaxTracksPerRequest, n+1 {
		chunk := uris[i:min(i+MaxTracksPerRequest, len(uris))]

		var snapshot snapshotResponse
		if err := s.doRequest(ctx, http.MethodPost, endpoint, map[string][]string{"uris": chunk}, &snapshot); err != nil {
			return fmt.Errorf("failed to add batch %d: %w", n, err)
		}
		if batch != nil {
			batch(n, len(chunk))
		}
	}
	return nil
}
