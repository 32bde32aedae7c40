// Package auth manages user accounts and the active session. Accounts
// live in a Firestore users collection with bcrypt password hashes;
// sessions persist across restarts as signed tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskwise/taskwise/config"
)

// MinPasswordLen matches the minimum the original sign-up form enforced.
const MinPasswordLen = 6

// User is an account record in the users collection.
type User struct {
	UserID       string    `firestore:"userId" json:"userId"`
	Email        string    `firestore:"email" json:"email"`
	PasswordHash string    `firestore:"passwordHash" json:"passwordHash"`
	CreatedAt    time.Time `firestore:"createdAt" json:"createdAt"`
}

// Session identifies the signed-in user.
type Session struct {
	UserID string
	Email  string
}

// UserStore defines the account persistence the service needs.
type UserStore interface {
	// GetByEmail returns the account for email, or ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (User, error)

	// Create stores a new account record.
	Create(ctx context.Context, user User) error
}

// Service holds the current session and notifies subscribers when it
// changes. Only authentication operations can visibly fail; everything
// else in the app stays optimistic.
type Service struct {
	users  UserStore
	secret []byte
	ttl    time.Duration

	mu      sync.Mutex
	current *Session
	nextID  int
	subs    map[int]func(*Session)
}

// NewService creates an auth service over the given account store.
func NewService(users UserStore, cfg config.AuthConfig) *Service {
	return &Service{
		users:  users,
		secret: []byte(cfg.TokenSecret),
		ttl:    time.Duration(cfg.TokenTTLHours) * time.Hour,
		subs:   make(map[int]func(*Session)),
	}
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	if s.users == nil {
		return nil, ErrUnavailable
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if len(password) < MinPasswordLen {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{
		UserID:       uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return s.setSession(&Session{UserID: user.UserID, Email: user.Email}), nil
}

// SignIn verifies credentials and activates a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if s.users == nil {
		return nil, ErrUnavailable
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.setSession(&Session{UserID: user.UserID, Email: user.Email}), nil
}

// SignOut clears the active session. It cannot fail; problems during
// sign-out are logged only.
func (s *Service) SignOut() {
	s.setSession(nil)
	slog.Info("signed out")
}

// Current returns a copy of the active session, or nil when signed out.
func (s *Service) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	session := *s.current
	return &session
}

// UserID implements cloud.SessionSource.
func (s *Service) UserID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", false
	}
	return s.current.UserID, true
}

// Subscribe registers a session-change handler and returns an unsubscribe
// func. The handler receives the new session, nil on sign-out.
func (s *Service) Subscribe(handler func(*Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = handler

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// setSession swaps the active session and notifies subscribers. Handlers
// run on the calling goroutine, outside the lock.
func (s *Service) setSession(session *Session) *Session {
	s.mu.Lock()
	s.current = session
	handlers := make([]func(*Session), 0, len(s.subs))
	for _, h := range s.subs {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(session)
	}
	return session
}
