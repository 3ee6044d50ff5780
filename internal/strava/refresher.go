package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/stx/internal/models"
)

// Refresher exchanges the refresh token of current for a new [models.CredentialSet].
//
// A *[PersistError] may be returned together with valid credentials: the exchange succeeded
// but the new set could not be saved.
type Refresher interface {
	Refresh(ctx context.Context, current models.CredentialSet) (models.CredentialSet, error)
}

// CredentialSaver persists a credential set, replacing whatever was stored before.
type CredentialSaver interface {
	Save(models.CredentialSet) error
}

// TokenRefresher implements [Refresher] against the Strava token endpoint using the refresh_token grant.
type TokenRefresher struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	HTTPClient   *http.Client
	Store        CredentialSaver
	Logger       *log.Logger
}

// NewTokenRefresher creates a [TokenRefresher] for the production token endpoint.
// store may be nil, in which case refreshed credentials live only in memory.
func NewTokenRefresher(clientID, clientSecret string, store CredentialSaver, logger *log.Logger) *TokenRefresher {
	return &TokenRefresher{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     TokenURL,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		Store:        store,
		Logger:       logger,
	}
}

// Refresh validates its inputs, performs the token exchange and persists the result.
//
// Inputs are checked on every call because a previous refresh may have rotated the refresh token.
func (r *TokenRefresher) Refresh(ctx context.Context, current models.CredentialSet) (models.CredentialSet, error) {
	var missing []string
	if r.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if r.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if current.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if len(missing) > 0 {
		return models.CredentialSet{}, &ConfigurationError{Missing: missing}
	}

	if r.Logger != nil {
		r.Logger.Info("refreshing access token")
	}

	cfg := &oauth2.Config{
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  r.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, onlyOK(r.HTTPClient))

	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		var se *tokenStatusError
		switch {
		case errors.As(err, &re) && re.Response != nil:
			return models.CredentialSet{}, &AuthRefreshError{
				StatusCode: re.Response.StatusCode,
				Body:       strings.TrimSpace(string(re.Body)),
				Err:        err,
			}
		case errors.As(err, &se):
			return models.CredentialSet{}, &AuthRefreshError{StatusCode: se.StatusCode, Body: se.Body, Err: err}
		}
		return models.CredentialSet{}, &AuthRefreshError{Err: err}
	}

	next := CredentialsFromToken(tok, current)

	if r.Store != nil {
		if err := r.Store.Save(next); err != nil {
			return next, &PersistError{Err: err}
		}
	}

	if r.Logger != nil {
		r.Logger.Info("token refreshed", "expires_at", next.ExpiresAt.Format(time.RFC3339))
	}
	return next, nil
}

// CredentialsFromToken converts a token endpoint response, preferring Strava's expires_at.
func CredentialsFromToken(tok *oauth2.Token, previous models.CredentialSet) models.CredentialSet {
	c := models.FromToken(tok, previous)
	if at, ok := expiresAt(tok); ok {
		c.ExpiresAt = at
	}
	return c
}

// expiresAt reads Strava's absolute expires_at field, which takes precedence over the
// expiry oauth2 derives from expires_in.
func expiresAt(tok *oauth2.Token) (time.Time, bool) {
	var secs int64
	switch v := tok.Extra("expires_at").(type) {
	case float64:
		secs = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}, false
		}
		secs = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		secs = n
	default:
		return time.Time{}, false
	}
	if secs <= 0 {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}

// tokenStatusError is a 2xx token response other than 200 OK.
type tokenStatusError struct {
	StatusCode int
	Body       string
}

func (e *tokenStatusError) Error() string {
	return fmt.Sprintf("token endpoint answered %d, want 200", e.StatusCode)
}

// okOnlyTransport turns every 2xx except 200 into a *tokenStatusError. oauth2 already rejects
// the other status classes.
type okOnlyTransport struct {
	next http.RoundTripper
}

func (t okOnlyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode == http.StatusOK || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, err
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
	return nil, &tokenStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func onlyOK(c *http.Client) *http.Client {
	if c == nil {
		c = http.DefaultClient
	}
	next := c.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *c
	wrapped.Transport = okOnlyTransport{next: next}
	return &wrapped
}
