package models

import (
	"time"

	"golang.org/x/oauth2"
)

// Provider names used as credential store keys.
const (
	ProviderStrava  = "strava"
	ProviderSpotify = "spotify"
)

// CredentialSet is an OAuth token triple. It is a value: refreshing produces a new set rather than mutating the old one.
type CredentialSet struct {
	AccessToken  string    `toml:"access_token" json:"access_token"`
	RefreshToken string    `toml:"refresh_token" json:"refresh_token"`
	ExpiresAt    time.Time `toml:"expires_at" json:"expires_at"`
}

// NewCredentialSet builds a set from an epoch-seconds expiry as returned by the token endpoint. Zero means unknown.
func NewCredentialSet(access, refresh string, expiresAt int64) CredentialSet {
	c := CredentialSet{AccessToken: access, RefreshToken: refresh}
	if expiresAt > 0 {
		c.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	}
	return c
}

// IsZero reports whether neither token is set.
func (c CredentialSet) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Expired reports whether the access token expiry is known and not after now.
func (c CredentialSet) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !c.ExpiresAt.After(now)
}

// Token converts the set to an [oauth2.Token].
func (c CredentialSet) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.ExpiresAt,
	}
}

// FromToken converts an [oauth2.Token] to a set.
//
// Token endpoints may omit the refresh token when it did not rotate; the previous one is kept in that case.
func FromToken(tok *oauth2.Token, previous CredentialSet) CredentialSet {
	c := CredentialSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if c.RefreshToken == "" {
		c.RefreshToken = previous.RefreshToken
	}
	return c
}

// StoredCredential is a [CredentialSet] as persisted for one provider.
type StoredCredential struct {
	Provider    string
	Credentials CredentialSet
	UpdatedAt   time.Time
}
