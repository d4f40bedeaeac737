package oauth

import (
	"errors"
	"fmt"
)

// ErrInvalidIDToken marks an ID token that failed signature, audience or
// expiry checks. Callers must not treat its detail as user-facing.
var ErrInvalidIDToken = errors.New("invalid id token")

// UpstreamError is returned when the identity provider rejects the code
// exchange. Body carries the provider's error response verbatim.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("google token exchange failed with status %d: %s", e.Status, e.Body)
}
