package derstandard

import "errors"

// Failures are never retried internally. Every error aborts the whole
// operation, partial pagination results are discarded.
var (
	// ErrNetwork wraps transport failures during any API request.
	ErrNetwork = errors.New("network failure")
	// ErrMalformedResponse wraps responses that are missing required
	// fields or do not match the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrConsentTimeout reports that the consent dialog was not accepted
	// within the configured bound.
	ErrConsentTimeout = errors.New("consent dialog timed out")
)
