// Package auth implements accounts, password verification and stateless
// bearer tokens for the other services.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"lifedesk/internal/storage"
)

// Principal represents an authenticated user.
type Principal struct {
	UserID string
	Email  string
}

// ErrorType represents the type of authentication error.
type ErrorType string

const (
	ErrInvalidCredentials ErrorType = "invalid_credentials"
	ErrUnauthorized       ErrorType = "unauthorized"
)

// Error represents an authentication-related error.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Service issues and verifies tokens against the user store.
type Service struct {
	users    storage.Users
	secret   []byte
	tokenTTL time.Duration
	log      *logrus.Entry
}

func NewService(users storage.Users, secret []byte, tokenTTL time.Duration, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{users: users, secret: secret, tokenTTL: tokenTTL, log: log}
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, password string) (storage.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return storage.User{}, &storage.Error{Type: storage.ErrInvalidInput, Message: "a valid email is required"}
	}
	if len(password) < 8 {
		return storage.User{}, &storage.Error{Type: storage.ErrInvalidInput, Message: "password must be at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return storage.User{}, fmt.Errorf("hashing password: %w", err)
	}
	return s.users.CreateUser(ctx, storage.User{Email: email, PasswordHash: string(hash)})
}

// Login verifies credentials and returns a signed bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, storage.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", storage.User{}, &Error{Type: ErrInvalidCredentials, Message: "unknown email or wrong password"}
		}
		return "", storage.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", storage.User{}, &Error{Type: ErrInvalidCredentials, Message: "unknown email or wrong password"}
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID,
		Issuer:    "lifedesk",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", storage.User{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, user, nil
}

// Verify validates a bearer token and resolves its principal.
func (s *Service) Verify(ctx context.Context, tokenText string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenText, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer("lifedesk"), jwt.WithExpirationRequired())
	if err != nil {
		return nil, &Error{Type: ErrUnauthorized, Message: "invalid token", Err: err}
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, &Error{Type: ErrUnauthorized, Message: "invalid token claims"}
	}

	user, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, &Error{Type: ErrUnauthorized, Message: "user no longer exists"}
		}
		return nil, err
	}
	return &Principal{UserID: user.ID, Email: user.Email}, nil
}
