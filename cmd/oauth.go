package main

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/desertthunder/stx/internal/server"
	"github.com/desertthunder/stx/internal/shared"
)

// doOAuth executes an authorization-code flow with a local callback server.
//
// authURL builds the provider's consent URL for the generated state.
func (r *Runner) doOAuth(ctx context.Context, provider string, config *oauth2.Config, authURL func(state string) string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := server.NewOAuthHandler(provider, config, state)
	srv, err := server.StartCallbackServer(r.callbackAddr(), handler, r.logger)
	if err != nil {
		return nil, err
	}

	url := authURL(state)
	r.writePlain("→ Opening browser for %s authorization...\n", provider)
	if err := r.openBrowser(url); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", url)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", server.DefaultAuthTimeout)
	return srv.Wait(ctx, server.DefaultAuthTimeout)
}

func (r *Runner) callbackAddr() string {
	if r.endpoints.CallbackAddr != "" {
		return r.endpoints.CallbackAddr
	}
	return fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
}
