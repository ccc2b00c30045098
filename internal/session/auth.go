package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/storefront/internal/api"
)

// ErrBlankCredentials is returned before any network call when the username
// or password is blank.
var ErrBlankCredentials = errors.New("username and password are required")

// AuthService is the remote side of login and registration.
type AuthService interface {
	Login(ctx context.Context, username, password string) (json.RawMessage, error)
	Register(ctx context.Context, username, password string) (string, error)
}

// Authenticator performs login and registration and owns slot writes.
type Authenticator struct {
	remote AuthService
	slot   Slot
}

// NewAuthenticator returns an Authenticator.
func NewAuthenticator(remote AuthService, slot Slot) *Authenticator {
	return &Authenticator{remote: remote, slot: slot}
}

// Login authenticates and persists the returned user object.
func (a *Authenticator) Login(ctx context.Context, username, password string) (Session, error) {
	if blank(username) || blank(password) {
		return Session{}, ErrBlankCredentials
	}
	raw, err := a.remote.Login(ctx, username, password)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	s, err := Parse(raw)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	if err := a.slot.Put(ctx, SlotUser, s.Raw); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

// Register creates an account. The caller still has to log in.
func (a *Authenticator) Register(ctx context.Context, username, password string) (string, error) {
	if blank(username) || blank(password) {
		return "", ErrBlankCredentials
	}
	msg, err := a.remote.Register(ctx, username, password)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	return msg, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Messages shown for login and registration.
const (
	MessageBlankCredentials = "Please fill in both name and password!"
	MessageLoginOK          = "Login successful!"
	MessageLoginFailed      = "Login failed!"
	MessageRegisterOK       = "Registration successful! You can now login."
	MessageRegisterFailed   = "Registration failed!"
	MessageUnreachable      = "Cannot connect to server! Make sure the backend is running."
)

// UserMessage maps a Login or Register error to the text shown to the user.
// The server's own message wins when it sent one.
func UserMessage(err error, register bool) string {
	switch {
	case errors.Is(err, ErrBlankCredentials):
		return MessageBlankCredentials
	case api.KindOf(err) == api.KindNetwork:
		return MessageUnreachable
	}
	if msg, ok := api.ServerMessage(err); ok {
		return msg
	}
	if register {
		return MessageRegisterFailed
	}
	return MessageLoginFailed
}
