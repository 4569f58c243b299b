package handler

import (
	"net/http"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api/response"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/session"
)

// AdminHandler handles operator endpoints
type AdminHandler struct {
	sessions *session.Manager
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sessions *session.Manager) *AdminHandler {
	return &AdminHandler{sessions: sessions}
}

// Reconcile handles POST /api/v1/admin/reconcile
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.sessions.Reconcile(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, report)
}
