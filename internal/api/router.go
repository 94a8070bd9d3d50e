package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/minefleet-core/internal/auth"
)

const healthCheckTimeout = 3 * time.Second

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(requirePermission(auth.PermFleetRead))

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Get("/devices", s.handleListDevices)
			r.Get("/view", s.handleListDevices)
			r.Put("/view", s.handleUpdateView)
			r.Route("/devices/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Post("/comments", s.handleAddComment)
				r.Patch("/comments/{commentID}", s.handleEditComment)
				r.Delete("/comments/{commentID}", s.handleDeleteComment)
			})

			r.Get("/cabinets", s.handleListCabinets)
			r.Get("/cabinets/{id}", s.handleGetCabinet)

			r.Route("/filters", func(r chi.Router) {
				r.Get("/", s.handleGetFilter)
				r.Post("/resolve", s.handleResolveFilter)
				r.With(requirePermission(auth.PermSelectionWrite)).Put("/", s.handleSetFilter)
			})

			r.Route("/selection", func(r chi.Router) {
				r.Get("/", s.handleGetSelection)

				r.Group(func(r chi.Router) {
					r.Use(requirePermission(auth.PermSelectionWrite))
					r.Delete("/", s.handleResetSelection)

					r.Post("/devices", s.handleSelectAllDevices)
					r.Delete("/devices", s.handleDeselectAllDevices)
					r.Post("/devices/{id}", s.handleSelectDevice)
					r.Delete("/devices/{id}", s.handleDeselectDevice)

					r.Post("/containers/{id}", s.handleSelectContainer)
					r.Delete("/containers/{id}", s.handleDeselectContainer)

					r.Post("/cabinets/{id}", s.handleSelectCabinet)
					r.Delete("/cabinets/{id}", s.handleDeselectCabinet)

					r.Post("/sockets", s.handleSelectSocket)
					r.Delete("/sockets", s.handleDeselectSocket)
				})

				r.With(requirePermission(auth.PermActionExecute)).
					Post("/actions/{action}", s.handleSelectionAction)
			})

			r.With(requirePermission(auth.PermUserManage)).Get("/audit", s.handleListAudit)
		})
	})

	return r
}

// handleHealth runs every registered health check. Any failure turns the
// response into 503 with the failing component's message.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(s.health))
	for name, checker := range s.health {
		if checker == nil {
			continue
		}
		if err := checker.HealthCheck(ctx); err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":     overall,
		"version":    s.version,
		"components": components,
		"ws_clients": s.hub.ClientCount(),
	})
}
