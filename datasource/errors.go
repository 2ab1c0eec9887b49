package datasource

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind classifies a data-access failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindFileNotFound
	KindDecodingFailed
	KindNetworkError
	KindInvalidURL
	KindCacheExpired
	KindNoDataAvailable
)

func (k Kind) String() string {
	switch k {
	case KindFileNotFound:
		return "fileNotFound"
	case KindDecodingFailed:
		return "decodingFailed"
	case KindNetworkError:
		return "networkError"
	case KindInvalidURL:
		return "invalidURL"
	case KindCacheExpired:
		return "cacheExpired"
	case KindNoDataAvailable:
		return "noDataAvailable"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced by sources and fetch services.
// Name carries the file name for KindFileNotFound and the offending string
// for KindInvalidURL.
type Error struct {
	Kind  Kind
	Name  string
	Cause error
}

var _ error = (*Error)(nil)

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrFileNotFound    = &Error{Kind: KindFileNotFound}
	ErrDecodingFailed  = &Error{Kind: KindDecodingFailed}
	ErrNetwork         = &Error{Kind: KindNetworkError}
	ErrInvalidURL      = &Error{Kind: KindInvalidURL}
	ErrCacheExpired    = &Error{Kind: KindCacheExpired}
	ErrNoDataAvailable = &Error{Kind: KindNoDataAvailable}
	ErrUnknown         = &Error{Kind: KindUnknown}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindFileNotFound:
		return fmt.Sprintf("file '%s' not found", e.Name)
	case KindDecodingFailed:
		return "failed to decode data" + e.causeSuffix()
	case KindNetworkError:
		return "network error" + e.causeSuffix()
	case KindInvalidURL:
		return "invalid URL: " + e.Name
	case KindCacheExpired:
		return "cached data has expired"
	case KindNoDataAvailable:
		return "no data available"
	default:
		return "unknown error" + e.causeSuffix()
	}
}

func (e *Error) causeSuffix() string {
	if e.Cause == nil {
		return ""
	}
	return ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func FileNotFound(name string) error {
	return &Error{Kind: KindFileNotFound, Name: name}
}

func DecodingFailed(cause error) error {
	return &Error{Kind: KindDecodingFailed, Cause: cause}
}

func NetworkError(cause error) error {
	return &Error{Kind: KindNetworkError, Cause: cause}
}

func InvalidURL(raw string) error {
	return &Error{Kind: KindInvalidURL, Name: raw}
}

func CacheExpired() error {
	return &Error{Kind: KindCacheExpired}
}

func NoDataAvailable() error {
	return &Error{Kind: KindNoDataAvailable}
}

func Unknown(cause error) error {
	return &Error{Kind: KindUnknown, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Classify returns err unchanged if it already carries a *Error and wraps
// it as unknown otherwise. A nil err stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Unknown(err)
}

// StatusError is the cause of a network error for a non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %s", e.URL, e.Status)
}
