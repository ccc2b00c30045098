package cart

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingBookID is a validation failure raised before any request.
	ErrMissingBookID = errors.New("book id is missing")
	// ErrEmptyCart is returned by Checkout on an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInFlight is returned when the same action is still awaiting its
	// response.
	ErrInFlight = errors.New("action already in progress")
)

// ActionError is a failed cart operation. Message is safe to show the user;
// Err carries the cause for errors.Is/As (session.ErrNotAuthenticated,
// *api.RemoteError, the sentinels above).
type ActionError struct {
	Op      string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// UserMessage returns the message to show for err, falling back to
// err.Error() for errors that did not come from this package.
func UserMessage(err error) string {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
