// Package httpapi exposes the ledger services over a thin JSON API.
// Authentication lives in a fronting collaborator; this layer only reads
// the acting member from headers and passes it through to the state
// machine's actor checks.
package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/tally/internal/service"
)

// Server bundles the handlers and their dependencies.
type Server struct {
	ledger *service.LedgerService
	groups *service.GroupService
}

// New creates a Server over the given services.
func New(ledger *service.LedgerService, groups *service.GroupService) *Server {
	return &Server{ledger: ledger, groups: groups}
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	mux.HandleFunc("POST /api/groups/{id}/members", s.handleAddMember)
	mux.HandleFunc("GET /api/groups/{id}/members", s.handleListMembers)
	mux.HandleFunc("PUT /api/members/{id}/weight", s.handleSetMemberWeight)
	mux.HandleFunc("DELETE /api/members/{id}", s.handleRemoveMember)

	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/groups/{id}/balances", s.handleGroupBalances)
	mux.HandleFunc("POST /api/groups/{id}/audit", s.handleAuditGroup)

	mux.HandleFunc("POST /api/expenses/{id}/payments/{member}", s.handleTransitionPayment)

	mux.HandleFunc("POST /api/advances", s.handleCreateAdvance)
	mux.HandleFunc("DELETE /api/advances/{id}", s.handleDeleteAdvance)
	mux.HandleFunc("POST /api/direct-payments", s.handleCreateDirectPayment)
	mux.HandleFunc("DELETE /api/direct-payments/{id}", s.handleDeleteDirectPayment)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return loggingMiddleware(mux)
}
