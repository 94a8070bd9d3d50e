// Package api serves the fleet list, the selection store and comment
// mutations over HTTP, and pushes list-view updates over WebSocket.
//
// The server follows the same lifecycle as the infrastructure clients:
//
//	srv, err := api.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
//
// All routes live under /api/v1. Everything except health, login and the
// WebSocket upgrade requires a bearer token issued by POST /auth/login; the
// WebSocket authenticates with a single-use ticket from POST /auth/ws-ticket.
// Logins, comment mutations and dispatched actions are written to the audit
// trail when one is configured.
package api
