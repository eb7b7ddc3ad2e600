package client

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	// ErrNotConnected is returned when an API method is called before Connect.
	ErrNotConnected = errors.New("YouTube client not connected")
	// ErrChannelNotFound is returned when a handle resolves to no channel.
	ErrChannelNotFound = errors.New("channel not found on YouTube")
)

// ErrorKind classifies a failed API operation.
type ErrorKind int

const (
	// KindTransport covers non-2xx responses and connection failures.
	KindTransport ErrorKind = iota + 1
	// KindDataShape covers responses missing an expected field or item.
	KindDataShape
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDataShape:
		return "data shape"
	default:
		return "unknown"
	}
}

// Error is returned by every API operation of YouTubeDataClient. Err is the
// underlying failure, typically a *googleapi.Error for HTTP errors.
type Error struct {
	Kind ErrorKind
	Op   string // API method, e.g. "channels.list"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func transportError(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func dataShapeError(op string, err error) error {
	return &Error{Kind: KindDataShape, Op: op, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or 0 if there is none.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// StatusCode returns the HTTP status carried by err, or 0 when the failure
// happened before a response was received.
func StatusCode(err error) int {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return 0
}

// IsQuotaExceeded reports whether err is the API's quota or rate limit rejection.
func IsQuotaExceeded(err error) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}
	if gErr.Code == http.StatusTooManyRequests {
		return true
	}
	if gErr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range gErr.Errors {
		switch item.Reason {
		case "quotaExceeded", "rateLimitExceeded", "dailyLimitExceeded":
			return true
		}
	}
	return false
}
