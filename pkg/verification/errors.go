package verification

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSerialization indicates the outbound message could not be built or encoded.
	// No network call is made when this error is returned.
	ErrSerialization = errors.New("verification: cannot build outbound message")

	// ErrNetwork indicates the HTTP call to the vendor could not be completed.
	ErrNetwork = errors.New("verification: vendor request failed")

	// ErrVendorRejected indicates the vendor answered with a non-success status.
	ErrVendorRejected = errors.New("verification: vendor rejected message")

	// ErrCanceled indicates the context was canceled or its deadline expired
	// while the request was in flight.
	ErrCanceled = errors.New("verification: dispatch canceled")

	// ErrRateLimited indicates the identifier exceeded its sending quota.
	ErrRateLimited = errors.New("verification: rate limit exceeded")

	// ErrNoSender indicates a Provider has no SendVerificationRequest override.
	ErrNoSender = errors.New("verification: no sender registered")
)

// Causes joined with ErrSerialization.
var (
	ErrNilRequest         = errors.New("verification: request is nil")
	ErrMissingIdentifier  = errors.New("verification: identifier is required")
	ErrMissingURL         = errors.New("verification: url is required")
	ErrMissingSender      = errors.New("verification: sender address is required")
	ErrMissingAPIKey      = errors.New("verification: api key is required")
	ErrInvalidEndpoint    = errors.New("verification: endpoint must be an absolute http(s) url")
	ErrVendorNotSpecified = errors.New("verification: vendor adapter is required")
)

// VendorError is returned when the vendor responds with a non-2xx status.
// Details holds the vendor's error messages verbatim when the body could be parsed.
type VendorError struct {
	Vendor     string
	Details    []string
	StatusCode int
}

func (e *VendorError) Error() string {
	msg := "verification: " + e.Vendor + " rejected message"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	return msg
}

// Unwrap makes errors.Is(err, ErrVendorRejected) hold for every VendorError.
func (e *VendorError) Unwrap() error {
	return ErrVendorRejected
}
