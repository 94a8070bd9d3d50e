package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/minefleet-core/internal/audit"
	"github.com/nerrad567/minefleet-core/internal/auth"
	"github.com/nerrad567/minefleet-core/internal/fleet"
	"github.com/nerrad567/minefleet-core/internal/selection"
)

// selectionResponse is the body of every selection endpoint.
type selectionResponse struct {
	Selection selection.Snapshot `json:"selection"`
	Changed   int                `json:"changed"`
}

func (s *Server) handleGetSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, selectionResponse{Selection: s.selection.Snapshot()})
}

func (s *Server) handleResetSelection(w http.ResponseWriter, r *http.Request) {
	s.selection.ResetAll()
	s.selectionChanged(w, r, 1)
}

// handleSelectAllDevices selects every miner of the held window.
func (s *Server) handleSelectAllDevices(w http.ResponseWriter, r *http.Request) {
	s.selectionChanged(w, r, s.selection.SelectDevices(s.view.Miners()))
}

func (s *Server) handleDeselectAllDevices(w http.ResponseWriter, r *http.Request) {
	s.selectionChanged(w, r, s.selection.DeselectDevices(s.view.Miners()))
}

// handleSelectDevice selects one held miner. ?by=identity forces identity
// addressing.
func (s *Server) handleSelectDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.view.Device(chi.URLParam(r, "id"))
	if !ok || !d.Type.Is(fleet.CategoryMiner) {
		writeNotFound(w, "miner not found")
		return
	}

	var changed bool
	if r.URL.Query().Get("by") == "identity" {
		changed = s.selection.SelectByIdentity(d)
	} else {
		changed = s.selection.SelectDevice(d)
	}
	s.selectionChanged(w, r, boolCount(changed))
}

func (s *Server) handleDeselectDevice(w http.ResponseWriter, r *http.Request) {
	changed := s.selection.DeselectDevice(chi.URLParam(r, "id"))
	s.selectionChanged(w, r, boolCount(changed))
}

func (s *Server) handleSelectContainer(w http.ResponseWriter, r *http.Request) {
	d, ok := s.view.Device(chi.URLParam(r, "id"))
	if !ok || !d.Type.Is(fleet.CategoryContainer) {
		writeNotFound(w, "container not found")
		return
	}
	s.selection.SelectContainer(d)
	s.selectionChanged(w, r, 1)
}

func (s *Server) handleDeselectContainer(w http.ResponseWriter, r *http.Request) {
	s.selection.DeselectContainer(chi.URLParam(r, "id"))
	s.selectionChanged(w, r, 1)
}

func (s *Server) handleSelectCabinet(w http.ResponseWriter, r *http.Request) {
	c, ok := s.view.Cabinet(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "cabinet not found")
		return
	}
	s.selection.SelectCabinet(c)
	s.selectionChanged(w, r, 1)
}

func (s *Server) handleDeselectCabinet(w http.ResponseWriter, r *http.Request) {
	s.selection.DeselectCabinet(chi.URLParam(r, "id"))
	s.selectionChanged(w, r, 1)
}

func (s *Server) handleSelectSocket(w http.ResponseWriter, r *http.Request) {
	sock, ok := s.decodeSocket(w, r)
	if !ok {
		return
	}
	s.selection.SelectSocket(sock)
	s.selectionChanged(w, r, 1)
}

func (s *Server) handleDeselectSocket(w http.ResponseWriter, r *http.Request) {
	sock, ok := s.decodeSocket(w, r)
	if !ok {
		return
	}
	s.selection.DeselectSocket(sock)
	s.selectionChanged(w, r, 1)
}

func (s *Server) decodeSocket(w http.ResponseWriter, r *http.Request) (selection.Socket, bool) {
	var sock selection.Socket
	if err := decodeJSON(r, &sock); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return sock, false
	}
	if sock.Container == "" || sock.PDUIndex == "" || sock.SocketIndex == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "container, pduIndex and socketIndex are required")
		return sock, false
	}
	return sock, true
}

// handleSelectionAction publishes a bulk action intent for the current
// selection. The selection itself is left untouched.
func (s *Server) handleSelectionAction(w http.ResponseWriter, r *http.Request) {
	if s.actions == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "action transport is not configured")
		return
	}

	var requestedBy string
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		requestedBy = claims.Username
	}

	action := chi.URLParam(r, "action")
	intent, err := s.selection.Intent(action, requestedBy)
	switch {
	case errors.Is(err, selection.ErrInvalidAction):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid action name")
		return
	case errors.Is(err, selection.ErrEmptySelection):
		writeError(w, http.StatusConflict, ErrCodeConflict, "nothing is selected")
		return
	case err != nil:
		writeInternalError(w, "building action intent failed")
		return
	}

	if err := s.actions.PublishAction(action, intent); err != nil {
		s.logger.Error("publishing action intent failed", "action", action, "intent_id", intent.ID, "error", err)
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "action could not be dispatched")
		return
	}

	s.logger.Info("action intent published",
		"action", action,
		"intent_id", intent.ID,
		"devices", len(intent.Devices),
		"requested_by", requestedBy,
	)
	s.record(r.Context(), &audit.Entry{
		Action:     audit.ActionDispatch,
		EntityType: audit.EntitySelection,
		EntityID:   action,
		Username:   requestedBy,
		Details:    map[string]any{"intent_id": intent.ID, "devices": len(intent.Devices)},
	})
	writeJSON(w, http.StatusAccepted, intent)
}

// selectionChanged persists and broadcasts the selection, then writes it.
func (s *Server) selectionChanged(w http.ResponseWriter, r *http.Request, changed int) {
	snap := s.selection.Snapshot()
	if changed > 0 {
		s.persistSelection(r.Context(), snap)
		s.hub.Broadcast(ChannelSelection, snap)
	}
	writeJSON(w, http.StatusOK, selectionResponse{Selection: snap, Changed: changed})
}

func (s *Server) persistSelection(ctx context.Context, snap selection.Snapshot) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.SaveSnapshot(ctx, s.snapshotName, snap); err != nil {
		s.logger.Warn("persisting selection failed", "error", err)
	}
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
