package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Logger is the logging interface used by the auth package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Session is the result of a successful login.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// Authenticator checks operator credentials and issues access tokens.
type Authenticator struct {
	users  UserRepository
	secret string
	ttl    time.Duration
	logger Logger
}

// NewAuthenticator creates an Authenticator signing with secret.
func NewAuthenticator(users UserRepository, secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}
	return &Authenticator{users: users, secret: secret, ttl: ttl, logger: noopLogger{}}
}

// SetLogger sets the logger.
func (a *Authenticator) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	a.logger = logger
}

// Login verifies username and password. Unknown users and wrong passwords
// both return ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			a.logger.Info("login rejected", "username", username, "reason", "unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		a.logger.Info("login rejected", "username", username, "reason", "bad password")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	token, err := GenerateAccessToken(user, a.secret, a.ttl)
	if err != nil {
		return nil, err
	}
	a.logger.Info("operator logged in", "username", username, "role", user.Role)

	return &Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(a.ttl).UTC(),
		User:        *user,
	}, nil
}

// Verify parses a bearer token issued by Login.
func (a *Authenticator) Verify(token string) (*CustomClaims, error) {
	return ParseToken(token, a.secret)
}
