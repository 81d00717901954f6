package shared

import "fmt"

var (
	// Authentication errors
	ErrNotAuthenticated  = fmt.Errorf("not authenticated")
	ErrRefreshFailed     = fmt.Errorf("token refresh failed")
	ErrListenerTimeout   = fmt.Errorf("timed out waiting for authorization callback")
	ErrListenerCancelled = fmt.Errorf("authorization callback cancelled")

	// Playback polling errors
	ErrNoSession    = fmt.Errorf("no active playback session")
	ErrAuthRequired = fmt.Errorf("authentication required")
	ErrTransient    = fmt.Errorf("transient playback source error")
	ErrMalformed    = fmt.Errorf("malformed playback response")

	// Configuration errors
	ErrMissingConfig   = fmt.Errorf("configuration not found")
	ErrInvalidConfig   = fmt.Errorf("invalid configuration")
	ErrMissingClientID = fmt.Errorf("missing client id")
)
