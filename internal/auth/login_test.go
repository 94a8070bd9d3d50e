package auth

import (
	"errors"
	"testing"
	"time"
)

func TestAuthenticator_Login(t *testing.T) {
	repo := setupTestRepo(t)
	createTestUser(t, repo, "alice", "password-1", RoleOperator)
	createTestUser(t, repo, "dave", "password-2", RoleViewer)
	if _, err := repo.db.Exec("UPDATE users SET is_active = 0 WHERE username = 'dave'"); err != nil {
		t.Fatalf("deactivating user: %v", err)
	}

	a := NewAuthenticator(repo, testSecret, time.Minute)

	session, err := a.Login(t.Context(), "alice", "password-1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.TokenType != "Bearer" || session.User.Username != "alice" {
		t.Errorf("Login() = %+v", session)
	}
	claims, err := a.Verify(session.AccessToken)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Role != RoleOperator || claims.Username != "alice" {
		t.Errorf("claims = %+v, want alice operator", claims)
	}

	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"wrong password", "alice", "password-x", ErrInvalidCredentials},
		{"unknown user", "mallory", "password-1", ErrInvalidCredentials},
		{"inactive", "dave", "password-2", ErrUserInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Login(t.Context(), tt.username, tt.password); !errors.Is(err, tt.want) {
				t.Errorf("Login() error = %v, want %v", err, tt.want)
			}
		})
	}
}

type recordingLogger struct {
	warns []string
}

func (r *recordingLogger) Debug(string, ...any)     {}
func (r *recordingLogger) Info(string, ...any)      {}
func (r *recordingLogger) Warn(msg string, _ ...any) { r.warns = append(r.warns, msg) }

func TestSeedAdmin(t *testing.T) {
	repo := setupTestRepo(t)
	log := &recordingLogger{}

	password, err := SeedAdmin(t.Context(), repo, log)
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if len(password) != 2*seedPasswordBytes {
		t.Errorf("password length = %d, want %d", len(password), 2*seedPasswordBytes)
	}
	if len(log.warns) != 1 {
		t.Errorf("warnings = %v, want one", log.warns)
	}

	admin, err := repo.GetByUsername(t.Context(), "admin")
	if err != nil || admin.Role != RoleAdmin {
		t.Fatalf("seeded admin = %+v, %v", admin, err)
	}
	if ok, _ := VerifyPassword(password, admin.PasswordHash); !ok {
		t.Error("seeded password does not verify")
	}

	again, err := SeedAdmin(t.Context(), repo, nil)
	if err != nil || again != "" {
		t.Errorf("second SeedAdmin() = %q, %v, want skip", again, err)
	}
}
