package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/minefleet-core/internal/audit"
	"github.com/nerrad567/minefleet-core/internal/auth"
	"github.com/nerrad567/minefleet-core/internal/infrastructure/config"
	"github.com/nerrad567/minefleet-core/internal/infrastructure/logging"
	"github.com/nerrad567/minefleet-core/internal/listview"
	"github.com/nerrad567/minefleet-core/internal/selection"
)

const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ActionPublisher hands bulk action intents to the device controllers.
type ActionPublisher interface {
	PublishAction(action string, intent any) error
}

// Deps holds the dependencies of the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Version  string
	View     *listview.Orchestrator
	Auth     *auth.Authenticator
	Comments listview.CommentClient

	// Selection is required. Snapshots, when set, receives the selection
	// after every change and the active filter after every PUT /filters.
	Selection    *selection.Store
	Snapshots    selection.Repository
	SnapshotName string

	// Optional.
	Audit   audit.Repository
	Actions ActionPublisher
	Refresh func()
	Health  map[string]HealthChecker
}

// Server is the HTTP API server.
type Server struct {
	cfg          config.APIConfig
	wsCfg        config.WebSocketConfig
	logger       *logging.Logger
	version      string
	view         *listview.Orchestrator
	auth         *auth.Authenticator
	comments     *listview.CommentActions
	selection    *selection.Store
	snapshots    selection.Repository
	snapshotName string
	audit        audit.Repository
	actions      ActionPublisher
	refresh      func()
	health       map[string]HealthChecker

	hub     *Hub
	tickets *ticketStore
	server  *http.Server
	cancel  context.CancelFunc
}

// New creates a server. It is not listening until Start is called.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	case deps.View == nil:
		return nil, fmt.Errorf("list view is required")
	case deps.Selection == nil:
		return nil, fmt.Errorf("selection store is required")
	case deps.Auth == nil:
		return nil, fmt.Errorf("authenticator is required")
	case deps.Comments == nil:
		return nil, fmt.Errorf("comment client is required")
	}

	s := &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		logger:       deps.Logger,
		version:      deps.Version,
		view:         deps.View,
		auth:         deps.Auth,
		selection:    deps.Selection,
		snapshots:    deps.Snapshots,
		snapshotName: deps.SnapshotName,
		audit:        deps.Audit,
		actions:      deps.Actions,
		refresh:      deps.Refresh,
		health:       deps.Health,
		hub:          NewHub(deps.WS, deps.Logger),
		tickets:      newTicketStore(),
	}
	if s.snapshotName == "" {
		s.snapshotName = "default"
	}
	s.comments = listview.NewCommentActions(deps.Comments, auth.Permissions{}, s.hub, s.triggerRefresh)

	s.view.Subscribe(func(v listview.View) {
		s.hub.Broadcast(ChannelView, v)
	})
	return s, nil
}

// Handler returns the router. Start uses it; tests may serve it directly.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start launches the listener and the ticket cleanup loop.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.tickets.cleanLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close stops pending comment refreshes and shuts the listener down,
// waiting up to ten seconds for in-flight requests.
func (s *Server) Close() error {
	s.comments.Close()
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

func (s *Server) triggerRefresh() {
	if s.refresh != nil {
		s.refresh()
	}
}
