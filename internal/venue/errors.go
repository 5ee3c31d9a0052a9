package venue

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrUnsupportedVenue is returned by the factory for names outside the supported set.
	ErrUnsupportedVenue = errors.New("unsupported venue")
	// ErrUnsupportedCapability marks an operation a venue does not offer.
	ErrUnsupportedCapability = errors.New("unsupported capability")
	// ErrSymbolRequired marks an operation the venue only serves per symbol.
	ErrSymbolRequired = errors.New("symbol required")
	// ErrSubscriptionClosed is returned by Next after Close.
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// Error attaches venue and operation context to a failure.
type Error struct {
	Venue string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Venue, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err annotated with venue and op. A nil err stays nil, and an
// error that already carries venue context is returned unchanged.
func Wrap(venue, op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *Error
	if errors.As(err, &ve) {
		return err
	}
	return &Error{Venue: venue, Op: op, Err: err}
}

// Unsupported builds the error for a capability the venue lacks.
func Unsupported(venue, op string) error {
	return &Error{Venue: venue, Op: op, Err: ErrUnsupportedCapability}
}

// APIError is a venue-side rejection: a well-formed response with a
// non-success code.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Message)
}

// IsTransportFailure reports whether err came from the network rather than
// from the venue rejecting the request or from local validation.
func IsTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnsupportedCapability) || errors.Is(err, ErrUnsupportedVenue) || errors.Is(err, ErrSymbolRequired) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
