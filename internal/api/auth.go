package api

import (
	"context"
	"encoding/json"
	"errors"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates (POST /login) and returns the user object exactly as
// the server sent it.
func (c *Client) Login(ctx context.Context, username, password string) (json.RawMessage, error) {
	a, err := c.doAck(ctx, "POST", "/login", credentials{username, password})
	if err != nil {
		return nil, err
	}
	if len(a.User) == 0 || string(a.User) == "null" {
		return nil, &RemoteError{Kind: KindDecode, Op: "POST /login", Err: errors.New("response carried no user")}
	}
	return a.User, nil
}

// Register creates an account (POST /register). It does not log in.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	a, err := c.doAck(ctx, "POST", "/register", credentials{username, password})
	if err != nil {
		return "", err
	}
	return a.Message, nil
}
