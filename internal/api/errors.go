package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a remote failure.
type Kind string

const (
	// KindNetwork is a transport failure (connection refused, reset, DNS).
	KindNetwork Kind = "network"
	// KindTimeout is a request that exceeded the client timeout or deadline.
	KindTimeout Kind = "timeout"
	// KindCanceled is a request abandoned because its context was canceled.
	KindCanceled Kind = "canceled"
	// KindStatus is a non-2xx HTTP response.
	KindStatus Kind = "status"
	// KindRejected is a 2xx response carrying success:false.
	KindRejected Kind = "rejected"
	// KindDecode is a response body that could not be decoded.
	KindDecode Kind = "decode"
)

// RemoteError is returned by every Client method that fails.
type RemoteError struct {
	Kind Kind
	// Op is the request, e.g. "POST /cart/add".
	Op string
	// Status is the HTTP status, 0 when no response was received.
	Status int
	// Message is the server-supplied error or message field, if any.
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Kind, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a wrapped RemoteError, or "" if err is not one.
func KindOf(err error) Kind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// IsRejected reports whether the server answered success:false.
func IsRejected(err error) bool {
	return KindOf(err) == KindRejected
}

// IsCanceled reports whether the request was abandoned by its caller.
func IsCanceled(err error) bool {
	return KindOf(err) == KindCanceled || errors.Is(err, context.Canceled)
}

// ServerMessage returns the message the server attached to a failure.
func ServerMessage(err error) (string, bool) {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message, true
	}
	return "", false
}

// classify maps a transport error from http.Client.Do to a Kind.
func classify(ctx context.Context, err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return KindCanceled
	}
	return KindNetwork
}
