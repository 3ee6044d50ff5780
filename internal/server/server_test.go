package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/stx/internal/shared"
)

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_at":1893456000}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func oauthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:3000/callback",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestOAuthHandler(t *testing.T) {
	tokens := newTokenServer(t)

	t.Run("exchanges code", func(t *testing.T) {
		h := NewOAuthHandler("Strava", oauthConfig(tokens.URL), "state123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state123&code=good-code&scope=read,activity:read_all", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Strava authorization successful") {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Token.AccessToken != "at" || result.Token.RefreshToken != "rt" {
			t.Errorf("unexpected token: %+v", result.Token)
		}
	})

	t.Run("rejects bad state", func(t *testing.T) {
		h := NewOAuthHandler("Strava", oauthConfig(tokens.URL), "state123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=other&code=good-code", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected state error")
		}
	})

	t.Run("denied authorization", func(t *testing.T) {
		h := NewOAuthHandler("Spotify", oauthConfig(tokens.URL), "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Error())
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		h := NewOAuthHandler("Strava", oauthConfig(tokens.URL), "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=bad-code", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected exchange error")
		}
	})

	t.Run("only first callback counts", func(t *testing.T) {
		h := NewOAuthHandler("Strava", oauthConfig(tokens.URL), "s")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for replay, got %d", rec.Code)
		}
	})

	t.Run("routes follow redirect url", func(t *testing.T) {
		cfg := oauthConfig(tokens.URL)
		cfg.RedirectURL = "http://localhost:3000/auth/strava"
		if got := NewOAuthHandler("Strava", cfg, "s").Routes(); len(got) != 1 || got[0] != "/auth/strava" {
			t.Errorf("unexpected routes: %v", got)
		}

		cfg.RedirectURL = "http://localhost:3000"
		if got := NewOAuthHandler("Strava", cfg, "s").Routes(); got[0] != "/callback" {
			t.Errorf("expected /callback, got %v", got)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router := NewBasicRouter()
	router.Use(mw("first"), mw("second"))
	router.Handle("get", "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("unexpected response: %d %q", rec.Code, rec.Body.String())
	}
	if strings.Join(order, ",") != "first,second" {
		t.Errorf("unexpected middleware order: %v", order)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestRecover(t *testing.T) {
	router := NewBasicRouter()
	router.Use(Recover(log.New(io.Discard)))
	router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestCallbackServer(t *testing.T) {
	tokens := newTokenServer(t)

	t.Run("returns token", func(t *testing.T) {
		h := NewOAuthHandler("Strava", oauthConfig(tokens.URL), "abc")
		srv, err := StartCallbackServer("127.0.0.1:0", h, nil)
		if err != nil {
			t.Fatalf("StartCallbackServer() error = %v", err)
		}

		go func() {
			resp, err := http.Get(fmt.Sprintf("http://%s/callback?state=abc&code=good-code", srv.Addr()))
			if err == nil {
				resp.Body.Close()
			}
		}()

		token, err := srv.Wait(context.Background(), 5*time.Second)
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if token.AccessToken != "at" {
			t.Errorf("expected access token at, got %s", token.AccessToken)
		}
	})

	t.Run("times out", func(t *testing.T) {
		h := NewOAuthHandler("Strava", oauthConfig(tokens.URL), "abc")
		srv, err := StartCallbackServer("127.0.0.1:0", h, nil)
		if err != nil {
			t.Fatalf("StartCallbackServer() error = %v", err)
		}

		_, err = srv.Wait(context.Background(), 10*time.Millisecond)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		h := NewOAuthHandler("Strava", oauthConfig(tokens.URL), "abc")
		srv, err := StartCallbackServer("127.0.0.1:0", h, nil)
		if err != nil {
			t.Fatalf("StartCallbackServer() error = %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := srv.Wait(ctx, time.Minute); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("address in use", func(t *testing.T) {
		h := NewOAuthHandler("Strava", oauthConfig(tokens.URL), "abc")
		srv, err := StartCallbackServer("127.0.0.1:0", h, nil)
		if err != nil {
			t.Fatalf("StartCallbackServer() error = %v", err)
		}
		defer srv.Shutdown()

		if _, err := StartCallbackServer(srv.Addr(), h, nil); err == nil {
			t.Error("expected listen error")
		}
	})
}
