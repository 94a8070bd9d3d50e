package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad567/minefleet-core/internal/audit"
)

// record appends e to the audit trail. Failures are logged and never
// surface to the caller.
func (s *Server) record(ctx context.Context, e *audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, e); err != nil {
		s.logger.Warn("audit record failed", "action", e.Action, "entity_id", e.EntityID, "error", err)
	}
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit trail is not configured")
		return
	}

	q := r.URL.Query()
	f := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		Username:   q.Get("username"),
	}
	var err error
	if f.Limit, err = optionalInt(q.Get("limit")); err != nil {
		writeBadRequest(w, "limit must be a positive integer")
		return
	}
	if v := q.Get("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil || f.Offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
	}

	page, err := s.audit.List(r.Context(), f)
	if err != nil {
		s.logger.Error("listing audit trail failed", "error", err)
		writeInternalError(w, "listing audit trail failed")
		return
	}
	writeJSON(w, http.StatusOK, page)
}
