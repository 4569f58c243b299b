package handler

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api/middleware"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api/request"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api/response"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/identity"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/session"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	sessions *session.Manager
	identity *identity.Service
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Manager, identityService *identity.Service) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		identity: identityService,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSessionRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Opponent == "" {
		WriteError(w, NewInvalidRequestError("opponent is required"))
		return
	}

	opponent, err := h.identity.Resolve(r.Context(), req.Opponent)
	if err != nil {
		WriteError(w, err)
		return
	}

	created, err := h.sessions.Create(r.Context(), middleware.MustGetPlayerID(r.Context()), opponent.ID, req.Board)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, "/api/v1/sessions/"+url.PathEscape(string(created.ID)), response.SessionFromModel(created))
}

// List handles GET /api/v1/sessions?player=
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	player := model.PlayerID(r.URL.Query().Get("player"))
	if player == "" {
		player = middleware.MustGetPlayerID(r.Context())
	}

	sessions, err := h.sessions.List(r.Context(), player)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionListFromModel(sessions))
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.sessions.Get(r.Context(), sessionID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionFromModel(found))
}

// Move handles PATCH /api/v1/sessions/{id}. The caller is the mover.
func (h *SessionHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req request.MoveRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	update := model.MoveUpdate{
		Board:    req.Board,
		NextMove: model.PlayerID(req.NextMove),
		Status:   req.Status,
	}

	result, err := h.sessions.ApplyMove(r.Context(), sessionID(r), middleware.MustGetPlayerID(r.Context()), update)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MoveResponseFromModel(result))
}

// Finish handles POST /api/v1/sessions/{id}/finish
func (h *SessionHandler) Finish(w http.ResponseWriter, r *http.Request) {
	finished, err := h.sessions.Finish(r.Context(), sessionID(r), middleware.MustGetPlayerID(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionFromModel(finished))
}

func sessionID(r *http.Request) model.SessionID {
	return model.SessionID(mux.Vars(r)["id"])
}
