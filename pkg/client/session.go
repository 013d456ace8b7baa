package client

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthUser is the identity record held by the auth API.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Session is a signed-in auth session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         AuthUser  `json:"user"`
}

// tokenResponse is the auth API's token grant body.
type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	User         AuthUser `json:"user"`
}

// Claims are the fields wavespace reads from an access token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the access token's claims without verifying the
// signature; the server verifies tokens, the client only reads them.
func ParseClaims(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("client.ParseClaims: %w", err)
	}
	return &claims, nil
}

func sessionFromToken(tr tokenResponse, now time.Time) *Session {
	s := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		User:         tr.User,
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	default:
		if claims, err := ParseClaims(tr.AccessToken); err == nil && claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	if s.User.ID == "" {
		if claims, err := ParseClaims(tr.AccessToken); err == nil {
			s.User.ID = claims.Subject
			s.User.Email = claims.Email
		}
	}
	return s
}

// Expired reports whether the access token is past (or within skew of) its expiry.
func (s *Session) Expired(now time.Time, skew time.Duration) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(s.ExpiresAt)
}
