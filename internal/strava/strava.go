package strava

import (
	"strings"

	"golang.org/x/oauth2"
)

const (
	AuthURL        = "https://www.strava.com/oauth/authorize"
	TokenURL       = "https://www.strava.com/oauth/token"
	BaseURL        = "https://www.strava.com/api/v3"
	ActivitiesPath = "/athlete/activities"
)

// Scopes requested by the authorization-code flow. activity:read_all includes private activities.
var Scopes = []string{"read", "activity:read_all"}

// OAuthConfig returns the [oauth2.Config] for Strava. Strava expects the client credentials as form fields.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthURL,
			TokenURL:  TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL builds the authorization URL. Strava takes a comma separated scope list.
func AuthCodeURL(cfg *oauth2.Config, state string) string {
	return cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"), oauth2.SetAuthURLParam("scope", strings.Join(Scopes, ",")))
}
