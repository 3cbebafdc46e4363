// Package errs defines the closed error taxonomy shared by all providers.
package errs

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// Kind classifies a provider failure.
type Kind int

const (
	// KindUnknown marks errors that could not be classified.
	KindUnknown Kind = iota

	// KindAuth covers missing, invalid, expired, or rejected tokens (401/403).
	KindAuth

	// KindRateLimit covers 429 responses, optionally with a Retry-After hint.
	KindRateLimit

	// KindNetwork covers transport failures and 5xx responses.
	KindNetwork

	// KindValidation covers malformed input, unparseable stored data, and
	// other 4xx responses.
	KindValidation
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure.
// Classified errors cross layer boundaries unchanged; only genuinely
// unclassified errors get wrapped once via Wrap.
type Error struct {
	Kind Kind

	// Op labels the operation that failed, e.g. "todoist sync".
	Op string

	// Status is the HTTP status that produced the error, if any.
	Status int

	// RetryAfter is the server-provided backoff hint for rate limits.
	RetryAfter time.Duration

	Err error
}

func (e *Error) Error() string {
	msg := e.Op
	if msg == "" {
		msg = e.Kind.String()
	} else {
		msg += ": " + e.Kind.String()
	}
	if e.Status != 0 {
		msg += " (HTTP " + strconv.Itoa(e.Status) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Auth creates an auth-kind error.
func Auth(op string, status int) *Error {
	return &Error{Kind: KindAuth, Op: op, Status: status}
}

// RateLimit creates a rate-limit error carrying the parsed Retry-After hint.
func RateLimit(op string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimit, Op: op, Status: http.StatusTooManyRequests, RetryAfter: retryAfter}
}

// Network creates a network-kind error.
func Network(op string, cause error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: cause}
}

// Validation creates a validation-kind error.
func Validation(op string, cause error) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: cause}
}

// FromStatus classifies an HTTP response status.
// retryAfter is the raw Retry-After header value; it is parsed as seconds.
func FromStatus(op string, status int, retryAfter string) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Auth(op, status)
	case status == http.StatusTooManyRequests:
		return RateLimit(op, ParseRetryAfter(retryAfter))
	case status >= 400 && status < 500:
		return &Error{Kind: KindValidation, Op: op, Status: status}
	default:
		return &Error{Kind: KindNetwork, Op: op, Status: status}
	}
}

// ParseRetryAfter parses a Retry-After header given in seconds.
// Returns zero when the header is absent or unparseable.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Wrap wraps an unclassified error with an operation label.
// Errors already carrying a Kind pass through unchanged so they are never
// double-wrapped on their way up.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Kind: KindUnknown, Op: op, Err: err}
}

// KindOf extracts the kind of a classified error, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is classified as the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// RetryAfterOf returns the backoff hint of a rate-limit error, or zero.
func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRateLimit {
		return e.RetryAfter
	}
	return 0
}
