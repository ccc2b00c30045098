// Package session is the single read/write boundary for the persisted
// login slot.
//
// Components never look the user up on their own: they are handed a Gate
// and call RequireSession before any mutating remote call. Only the
// Authenticator writes the slot.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/storefront/internal/catalog"
)

// SlotUser is the slot holding the serialized user object.
const SlotUser = "user"

// ErrNotAuthenticated means no usable session is stored. Callers abort the
// operation and send the user to login.
var ErrNotAuthenticated = errors.New("not authenticated")

// Slot is durable key-value storage. *store.Store implements it.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Session is the logged-in user.
type Session struct {
	UserID   catalog.ID
	Username string
	// Raw is the user object exactly as the server returned it.
	Raw json.RawMessage
}

// Gate reads the session slot.
type Gate struct {
	slot Slot
}

// NewGate returns a gate over slot.
func NewGate(slot Slot) *Gate {
	return &Gate{slot: slot}
}

// RequireSession returns the current session or ErrNotAuthenticated. A slot
// that is absent, unparseable or lacks a user id counts as logged out. Only
// storage failures are returned as other errors.
func (g *Gate) RequireSession(ctx context.Context) (Session, error) {
	raw, ok, err := g.slot.Get(ctx, SlotUser)
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return Session{}, ErrNotAuthenticated
	}
	s, err := Parse(raw)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	return s, nil
}

// Current is RequireSession for read-only callers, which treat any failure
// as anonymous.
func (g *Gate) Current(ctx context.Context) (Session, bool) {
	s, err := g.RequireSession(ctx)
	return s, err == nil
}

// Parse decodes a serialized user object.
func Parse(raw []byte) (Session, error) {
	raw = bytes.TrimSpace(raw)
	var u struct {
		ID       catalog.ID `json:"id"`
		Username string     `json:"username"`
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		return Session{}, fmt.Errorf("decode user: %w", err)
	}
	if u.ID.IsZero() {
		return Session{}, errors.New("user has no id")
	}
	return Session{
		UserID:   u.ID,
		Username: u.Username,
		Raw:      append(json.RawMessage(nil), raw...),
	}, nil
}
