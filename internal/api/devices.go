package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/minefleet-core/internal/audit"
	"github.com/nerrad567/minefleet-core/internal/auth"
	"github.com/nerrad567/minefleet-core/internal/listview"
)

// handleListDevices returns the current list view. It never changes the view.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.view.View())
}

type viewBody struct {
	Tab  string `json:"tab,omitempty"`
	Page int    `json:"page,omitempty"`
	Size int    `json:"size,omitempty"`
}

// handleUpdateView switches the tab and the page window of the list view.
// The orchestrator is shared by every client of this service, so a tab
// change resets the held window for all of them. Omitted fields are kept.
func (s *Server) handleUpdateView(w http.ResponseWriter, r *http.Request) {
	var body viewBody
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.Page < 0 || body.Size < 0 {
		writeBadRequest(w, "page and size must be positive integers")
		return
	}
	if body.Tab != "" && listview.ParseTab(body.Tab) != listview.Tab(body.Tab) {
		writeBadRequest(w, "unknown tab")
		return
	}

	if body.Tab != "" {
		s.view.SetTab(listview.Tab(body.Tab))
	}
	v := s.view.View()
	if body.Page > 0 || body.Size > 0 {
		v = s.view.SetPage(body.Page, body.Size)
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.view.Device(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListCabinets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cabinets": s.view.Cabinets()})
}

func (s *Server) handleGetCabinet(w http.ResponseWriter, r *http.Request) {
	c, ok := s.view.Cabinet(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "cabinet not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type commentBody struct {
	Comment string `json:"comment"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var body commentBody
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.runComment(w, r, "add", true, s.comments.Add, listview.CommentRequest{
		DeviceID: chi.URLParam(r, "id"),
		Text:     body.Comment,
	})
}

func (s *Server) handleEditComment(w http.ResponseWriter, r *http.Request) {
	var body commentBody
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.runComment(w, r, "edit", true, s.comments.Edit, listview.CommentRequest{
		DeviceID:  chi.URLParam(r, "id"),
		CommentID: chi.URLParam(r, "commentID"),
		Text:      body.Comment,
	})
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	s.runComment(w, r, "delete", false, s.comments.Delete, listview.CommentRequest{
		DeviceID:  chi.URLParam(r, "id"),
		CommentID: chi.URLParam(r, "commentID"),
	})
}

// runComment performs a comment mutation as the calling operator. The
// failure reason has already been pushed to WebSocket clients as a
// notification by the time the response is written.
func (s *Server) runComment(w http.ResponseWriter, r *http.Request, op string, gated bool,
	call func(context.Context, listview.CommentRequest) bool, req listview.CommentRequest,
) {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		req.Author = claims.Username
	}
	if gated && !s.comments.CanWrite(r.Context()) {
		writeForbidden(w, "You do not have permission to write comments")
		return
	}
	if !call(r.Context(), req) {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, "comment mutation failed")
		return
	}
	s.record(r.Context(), &audit.Entry{
		Action:     audit.ActionComment,
		EntityType: audit.EntityDevice,
		EntityID:   req.DeviceID,
		Username:   req.Author,
		Details:    map[string]any{"op": op, "comment_id": req.CommentID},
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deviceId": req.DeviceID})
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
