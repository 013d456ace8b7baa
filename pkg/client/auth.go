package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wavespace/wavespace/pkg/backend"
	"github.com/wavespace/wavespace/pkg/domain"
)

// ErrInvalidCredentials is returned when the identifier or password is wrong.
var ErrInvalidCredentials = errors.New("invalid login credentials")

const (
	authPrefix   = "/auth/v1"
	usersTable   = "users"
	refreshSkew  = 30 * time.Second
	profileLimit = 1
)

// SignIn authenticates with a username or an email address and a password.
// A bare username is resolved to its email through the users table first.
func (c *Client) SignIn(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("client.SignIn: %w", ErrInvalidCredentials)
	}

	email := identifier
	if !strings.Contains(identifier, "@") {
		rows, err := c.Select(ctx, usersTable, backend.Query{
			Columns: "email",
			Limit:   profileLimit,
			Filter:  map[string]any{"username": identifier},
		})
		if err != nil {
			return nil, fmt.Errorf("client.SignIn: resolve username: %w", err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("client.SignIn: %w", ErrInvalidCredentials)
		}
		email = domain.UserFromRow(rows[0]).Email
	}

	var tr tokenResponse
	_, err := c.doRequest(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/token?grant_type=password",
		body:   map[string]string{"email": email, "password": password},
		bearer: c.apiKey,
	}, &tr)
	if err != nil {
		if IsStatus(err, http.StatusBadRequest) || IsStatus(err, http.StatusUnauthorized) {
			return nil, fmt.Errorf("client.SignIn: %w: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("client.SignIn: %w", err)
	}
	s := sessionFromToken(tr, time.Now())
	c.setSession(s)
	return s, nil
}

// Refresh exchanges the refresh token for a new session.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	cur := c.Session()
	if cur == nil || cur.RefreshToken == "" {
		return nil, errors.New("client.Refresh: no refresh token")
	}
	var tr tokenResponse
	_, err := c.doRequest(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/token?grant_type=refresh_token",
		body:   map[string]string{"refresh_token": cur.RefreshToken},
		bearer: c.apiKey,
	}, &tr)
	if err != nil {
		return nil, fmt.Errorf("client.Refresh: %w", err)
	}
	s := sessionFromToken(tr, time.Now())
	c.setSession(s)
	return s, nil
}

// SignOut revokes the session. The local session is dropped on success and
// when the server no longer recognises the token.
func (c *Client) SignOut(ctx context.Context) error {
	if c.Session() == nil {
		return nil
	}
	_, err := c.doRequest(ctx, request{method: http.MethodPost, path: authPrefix + "/logout"}, nil)
	if err != nil && !IsStatus(err, http.StatusUnauthorized) && !IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("client.SignOut: %w", err)
	}
	c.setSession(nil)
	return nil
}

// AuthUser returns the identity behind the current access token.
func (c *Client) AuthUser(ctx context.Context) (*AuthUser, error) {
	var u AuthUser
	if err := c.get(ctx, authPrefix+"/user", &u); err != nil {
		return nil, fmt.Errorf("client.AuthUser: %w", err)
	}
	return &u, nil
}

// CurrentUser loads the signed-in member's profile row. It returns nil and
// no error for guests. An expired access token is refreshed first.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	s := c.Session()
	if s == nil {
		return nil, nil
	}
	if s.Expired(time.Now(), refreshSkew) {
		var err error
		if s, err = c.Refresh(ctx); err != nil {
			c.setSession(nil)
			return nil, nil
		}
	}

	rows, err := c.Select(ctx, usersTable, backend.Query{
		Limit:  profileLimit,
		Filter: map[string]any{"auth_user_id": s.User.ID},
	})
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			return nil, nil
		}
		return nil, fmt.Errorf("client.CurrentUser: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	u := domain.UserFromRow(rows[0])
	return &u, nil
}

// ResetPassword asks the auth API to email a password-reset link.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("client.ResetPassword: email is required")
	}
	if err := c.post(ctx, authPrefix+"/recover", map[string]string{"email": email}, nil); err != nil {
		return fmt.Errorf("client.ResetPassword: %w", err)
	}
	return nil
}

// RealtimeURL is the websocket endpoint of the change feed.
func (c *Client) RealtimeURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("vsn", "1.0.0")
	return u + "/realtime/v1/websocket?" + params.Encode()
}
