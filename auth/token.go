package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionToken mints a signed token for the active session, used to keep
// the user signed in across restarts.
func (s *Service) SessionToken() (string, error) {
	session := s.Current()
	if session == nil {
		return "", ErrNoSession
	}
	if len(s.secret) == 0 {
		return "", ErrNoTokenKey
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   session.UserID,
		"email": session.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Restore activates the session described by a previously minted token.
// Expired or malformed tokens return ErrInvalidToken and leave the
// signed-out state untouched.
func (s *Service) Restore(token string) (*Session, error) {
	if len(s.secret) == 0 {
		return nil, ErrNoTokenKey
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}

	return s.setSession(&Session{UserID: sub, Email: email}), nil
}
