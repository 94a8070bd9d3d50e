package api

import (
	"net/http"

	"github.com/nerrad567/minefleet-core/internal/filtertree"
	"github.com/nerrad567/minefleet-core/internal/listview"
)

type resolveRequest struct {
	Tree   []filtertree.Node `json:"tree"`
	Values map[string][]any  `json:"values"`
}

type filterBody struct {
	Tags      []string `json:"tags,omitempty"`
	Selection [][]any  `json:"selection"`
}

type filterResponse struct {
	Filter    listview.Filter `json:"filter"`
	Selection [][]any         `json:"selection"`
	View      listview.View   `json:"view"`
}

// handleResolveFilter converts active filter values into cascader tuples
// for the given tree.
func (s *Server) handleResolveFilter(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"selection": filtertree.BuildSelection(req.Tree, req.Values),
	})
}

func (s *Server) handleGetFilter(w http.ResponseWriter, _ *http.Request) {
	f := s.view.Filter()
	writeJSON(w, http.StatusOK, map[string]any{"filter": f})
}

// handleSetFilter applies cascader tuples as the active filter. A changed
// filter resets the held window and triggers an immediate poll.
func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var body filterBody
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	f := listview.Filter{Tags: body.Tags}
	if values := filtertree.ResolveValues(body.Selection); len(values) > 0 {
		f.Values = values
	}

	changed := !s.view.Filter().Equal(f)
	v := s.view.SetFilter(f)

	if s.snapshots != nil {
		if err := s.snapshots.SaveFilter(r.Context(), s.snapshotName, body.Selection); err != nil {
			s.logger.Warn("persisting filter failed", "error", err)
		}
	}
	if changed {
		s.triggerRefresh()
	}

	writeJSON(w, http.StatusOK, filterResponse{Filter: f, Selection: body.Selection, View: v})
}
