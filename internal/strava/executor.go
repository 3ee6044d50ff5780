package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
)

const (
	// DefaultMaxAttempts bounds transient failures and the refresh path of a single call.
	DefaultMaxAttempts = 3
	// DefaultRateLimitWait applies when a 429 response carries no usable Retry-After header.
	DefaultRateLimitWait = 60 * time.Second
	// DefaultRequestTimeout bounds a single HTTP request.
	DefaultRequestTimeout = 30 * time.Second
)

// State is a step of the per-call retry state machine.
type State int

const (
	StateAttempting State = iota
	StateRateLimited
	StateAuthExpired
	StateTransientFailure
	StateSucceeded
	StateExhaustedFailed
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "Attempting"
	case StateRateLimited:
		return "RateLimited"
	case StateAuthExpired:
		return "AuthExpired"
	case StateTransientFailure:
		return "TransientFailure"
	case StateSucceeded:
		return "Succeeded"
	case StateExhaustedFailed:
		return "ExhaustedFailed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default [SleepFunc].
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Stats counts what an [Executor] did across all calls.
type Stats struct {
	Requests       int
	RateLimitWaits int
	Refreshes      int
	Retries        int
	Waited         time.Duration
}

// ExecutorConfig configures an [Executor]. Zero values select the defaults.
type ExecutorConfig struct {
	BaseURL        string
	Credentials    models.CredentialSet
	Refresher      Refresher
	MaxAttempts    int
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Sleep          SleepFunc
	Now            func() time.Time
	// StrictPersist turns a failure to save refreshed credentials into a fatal error.
	StrictPersist bool
	Logger        *log.Logger
	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State)
}

// Executor issues authenticated GET requests and recovers from rate limiting, a single token
// expiry and transient failures. It owns the current credentials; only its [Refresher] replaces them.
//
// An Executor is not safe for concurrent use.
type Executor struct {
	baseURL       string
	client        *http.Client
	creds         models.CredentialSet
	refresher     Refresher
	maxAttempts   int
	sleep         SleepFunc
	now           func() time.Time
	strictPersist bool
	logger        *log.Logger
	onTransition  func(from, to State)
	state         State
	stats         Stats
}

// NewExecutor creates an [Executor] from cfg.
func NewExecutor(cfg ExecutorConfig) *Executor {
	e := &Executor{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		client:        cfg.HTTPClient,
		creds:         cfg.Credentials,
		refresher:     cfg.Refresher,
		maxAttempts:   cfg.MaxAttempts,
		sleep:         cfg.Sleep,
		now:           cfg.Now,
		strictPersist: cfg.StrictPersist,
		logger:        cfg.Logger,
		onTransition:  cfg.OnTransition,
	}

	if e.baseURL == "" {
		e.baseURL = BaseURL
	}
	if e.maxAttempts < 1 {
		e.maxAttempts = DefaultMaxAttempts
	}
	if e.client == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = DefaultRequestTimeout
		}
		e.client = &http.Client{Timeout: timeout}
	}
	if e.sleep == nil {
		e.sleep = Sleep
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}
	return e
}

// Credentials returns the credential set currently used for requests.
func (e *Executor) Credentials() models.CredentialSet { return e.creds }

// Stats returns counters accumulated over all calls.
func (e *Executor) Stats() Stats { return e.stats }

// State returns the state the last call ended in.
func (e *Executor) State() State { return e.state }

type response struct {
	status     int
	body       []byte
	retryAfter string
}

// Execute performs a GET of endpoint with the given extra headers and query and returns the JSON body.
//
// endpoint is either a path relative to the base URL or an absolute URL. The Authorization header
// always carries the current access token.
func (e *Executor) Execute(ctx context.Context, endpoint string, header http.Header, query url.Values) (json.RawMessage, error) {
	target := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		target = e.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempt := 0
	refreshed := false
	for {
		e.transition(StateAttempting)
		e.stats.Requests++

		resp, err := e.do(ctx, target, header)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		switch {
		case err == nil && resp.status >= 200 && resp.status < 300:
			e.transition(StateSucceeded)
			return json.RawMessage(resp.body), nil

		case err == nil && resp.status == http.StatusTooManyRequests:
			e.transition(StateRateLimited)
			wait := retryAfter(resp.retryAfter, e.now())
			e.stats.RateLimitWaits++
			e.logger.Warn("rate limited", "wait", wait, "attempt", attempt+1)
			if err := e.wait(ctx, wait); err != nil {
				return nil, err
			}
			continue

		case err == nil && resp.status == http.StatusUnauthorized && refreshed:
			e.transition(StateExhaustedFailed)
			e.logger.Error("still unauthorized after token refresh", "status", resp.status)
			return nil, &AuthRefreshError{
				StatusCode: resp.status,
				Body:       string(resp.body),
				Err:        shared.ErrNotAuthenticated,
			}

		case err == nil && resp.status == http.StatusUnauthorized && attempt == 0:
			e.transition(StateAuthExpired)
			e.logger.Info("access token rejected, refreshing")
			if err := e.refresh(ctx); err != nil {
				e.transition(StateExhaustedFailed)
				return nil, err
			}
			refreshed = true
			attempt++
			if attempt >= e.maxAttempts {
				return nil, e.exhausted(attempt, resp, nil)
			}
			continue
		}

		e.transition(StateTransientFailure)
		if attempt+1 >= e.maxAttempts {
			return nil, e.exhausted(attempt+1, resp, err)
		}

		backoff := Backoff(attempt)
		if err != nil {
			e.logger.Warn("network error, retrying", "attempt", attempt+1, "max_attempts", e.maxAttempts, "backoff", backoff, "err", err)
		} else {
			e.logger.Warn("request failed, retrying", "status", resp.status, "attempt", attempt+1, "max_attempts", e.maxAttempts, "backoff", backoff)
		}
		if err := e.wait(ctx, backoff); err != nil {
			return nil, err
		}
		e.stats.Retries++
		attempt++
	}
}

// Backoff is the wait after the failed 0-indexed attempt: 1s, 2s, 4s, ...
func Backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// retryAfter parses a Retry-After header given either in seconds or as an HTTP date.
func retryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultRateLimitWait
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return DefaultRateLimitWait
}

func (e *Executor) do(ctx context.Context, target string, header http.Header) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+e.creds.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &response{
		status:     resp.StatusCode,
		body:       body,
		retryAfter: resp.Header.Get("Retry-After"),
	}, nil
}

// refresh swaps in new credentials. The in-memory set is replaced before a persistence
// failure is considered so the session never keeps a refresh token the server already rotated.
func (e *Executor) refresh(ctx context.Context) error {
	if e.refresher == nil {
		return &AuthRefreshError{StatusCode: http.StatusUnauthorized, Err: shared.ErrNotAuthenticated}
	}

	creds, err := e.refresher.Refresh(ctx, e.creds)
	var perr *PersistError
	switch {
	case err == nil:
	case errors.As(err, &perr):
		e.creds = creds
		e.stats.Refreshes++
		if e.strictPersist {
			e.logger.Error("refreshed credentials were not persisted", "err", err)
			return err
		}
		e.logger.Error("refreshed credentials were not persisted, continuing with in-memory credentials", "err", err)
		return nil
	default:
		e.logger.Error("token refresh failed", "err", err)
		return err
	}

	e.creds = creds
	e.stats.Refreshes++
	return nil
}

func (e *Executor) exhausted(attempts int, resp *response, err error) error {
	e.transition(StateExhaustedFailed)
	rerr := &RequestFailedError{Attempts: attempts, Err: err}
	if resp != nil {
		rerr.StatusCode = resp.status
		rerr.Body = string(resp.body)
	}
	e.logger.Error("request failed", "attempts", attempts, "status", rerr.StatusCode, "err", err)
	return rerr
}

func (e *Executor) wait(ctx context.Context, d time.Duration) error {
	e.stats.Waited += d
	return e.sleep(ctx, d)
}

func (e *Executor) transition(to State) {
	from := e.state
	e.state = to
	if e.onTransition != nil {
		e.onTransition(from, to)
	}
}
