package shared

import "errors"

var (
	// Configuration errors
	ErrConfiguration      = errors.New("configuration error")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("missing credentials")

	// Authentication errors
	ErrAuthRefresh      = errors.New("token refresh failed")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrPersistFailed    = errors.New("failed to persist credentials")
	ErrTimeout          = errors.New("operation timed out")

	// API and fetch errors
	ErrAPIRequest      = errors.New("API request failed")
	ErrRequestFailed   = errors.New("request failed after retries")
	ErrMissingField    = errors.New("record is missing a mandatory field")
	ErrAlreadyConsumed = errors.New("paginated sequence already consumed")
	ErrTrackNotFound   = errors.New("track not found")
	ErrNoTracks        = errors.New("no tracks found")

	// Input validation errors
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidArgument = errors.New("invalid argument")
)
