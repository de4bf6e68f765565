package siar

import (
	"errors"
	"fmt"
)

// ErrTokenExpired signals that the data endpoint rejected the current token
// (401/403). It is an internal control signal: the fallback loop reacts by
// invalidating the cache and re-authenticating once, it is never surfaced to
// API clients as-is.
var ErrTokenExpired = errors.New("siar: token rejected by data endpoint")

// ErrMissingCredentials is returned before any network call when SIAR_USER
// or SIAR_PASS is not configured.
var ErrMissingCredentials = errors.New("siar: SIAR_USER and SIAR_PASS must be configured")

// AuthError reports a non-2xx response during the three-step token
// acquisition (cipher user, cipher pass, exchange for token).
type AuthError struct {
	Step   string
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("siar auth failed at %s: status %d", e.Step, e.Status)
}

// UpstreamError reports a non-auth failure from the SIAR data endpoint.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("siar data endpoint: status %d: %s", e.Status, e.Body)
}
