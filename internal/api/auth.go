package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/minefleet-core/internal/audit"
	"github.com/nerrad567/minefleet-core/internal/auth"
)

const (
	ticketTTL   = 60 * time.Second
	ticketBytes = 32
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	session, err := s.auth.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, "invalid credentials")
	case errors.Is(err, auth.ErrUserInactive):
		writeForbidden(w, "account is inactive")
	case err != nil:
		s.logger.Error("login failed", "username", req.Username, "error", err)
		writeInternalError(w, "login failed")
	default:
		s.record(r.Context(), &audit.Entry{
			Action:     audit.ActionLogin,
			EntityType: audit.EntityUser,
			EntityID:   session.User.ID,
			Username:   session.User.Username,
		})
		writeJSON(w, http.StatusOK, session)
	}
}

// ticketStore holds single-use WebSocket tickets bound to the claims of the
// caller that requested them.
type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]ticketEntry
	now     func() time.Time
}

type ticketEntry struct {
	claims    *auth.CustomClaims
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry), now: time.Now}
}

func (t *ticketStore) issue(claims *auth.CustomClaims) string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read does not fail on supported platforms
	rand.Read(b)
	ticket := hex.EncodeToString(b)

	t.mu.Lock()
	t.tickets[ticket] = ticketEntry{claims: claims, expiresAt: t.now().Add(ticketTTL)}
	t.mu.Unlock()
	return ticket
}

// redeem consumes ticket and returns its claims if it has not expired.
func (t *ticketStore) redeem(ticket string) (*auth.CustomClaims, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tickets[ticket]
	if !ok {
		return nil, false
	}
	delete(t.tickets, ticket)
	if !t.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.claims, true
}

func (t *ticketStore) cleanExpired() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for ticket, entry := range t.tickets {
		if !now.Before(entry.expiresAt) {
			delete(t.tickets, ticket)
		}
	}
}

func (t *ticketStore) cleanLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.cleanExpired()
		}
	}
}

func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     s.tickets.issue(claims),
		"expires_in": int(ticketTTL.Seconds()),
	})
}
