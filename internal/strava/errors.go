package strava

import (
	"fmt"
	"strings"

	"github.com/desertthunder/stx/internal/shared"
)

// ConfigurationError reports the settings that must be present before a refresh can be attempted.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing %s for token refresh", strings.Join(e.Missing, ", "))
}

func (e *ConfigurationError) Unwrap() error { return shared.ErrConfiguration }

// AuthRefreshError is returned when the token endpoint rejects a refresh, or when a request is
// still unauthorized after a refresh already happened. StatusCode is 0 when no response was received.
type AuthRefreshError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthRefreshError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%v: %d - %s", shared.ErrAuthRefresh, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%v: status %d", shared.ErrAuthRefresh, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", shared.ErrAuthRefresh, e.Err)
	default:
		return shared.ErrAuthRefresh.Error()
	}
}

func (e *AuthRefreshError) Unwrap() []error {
	if e.Err != nil {
		return []error{shared.ErrAuthRefresh, e.Err}
	}
	return []error{shared.ErrAuthRefresh}
}

// RequestFailedError is returned once the retry budget is spent.
// StatusCode and Body describe the last response; Err is the last network error when there was no response.
type RequestFailedError struct {
	Attempts   int
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API request failed after %d attempts: status %d - %s", e.Attempts, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("API request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RequestFailedError) Unwrap() []error {
	if e.Err != nil {
		return []error{shared.ErrRequestFailed, e.Err}
	}
	return []error{shared.ErrRequestFailed}
}

// MissingFieldError aborts normalization when a mandatory field is absent from a record.
// Index is the position of the record in the fetched sequence.
type MissingFieldError struct {
	Field string
	Index int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %d: missing mandatory field %q", e.Index, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return shared.ErrMissingField }

// PersistError is returned alongside valid credentials when the refresh succeeded but saving them failed.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%v: %v", shared.ErrPersistFailed, e.Err)
}

func (e *PersistError) Unwrap() []error { return []error{shared.ErrPersistFailed, e.Err} }
