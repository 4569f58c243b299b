package handler

import (
	"net/http"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api/middleware"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api/request"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api/response"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/identity"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	identity *identity.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(identityService *identity.Service) *PlayerHandler {
	return &PlayerHandler{
		identity: identityService,
	}
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	for _, f := range []struct{ name, value string }{
		{"username", req.Username},
		{"email", req.Email},
		{"password", req.Password},
		{"display_name", req.DisplayName},
	} {
		if f.value == "" {
			WriteError(w, NewInvalidRequestError(f.name+" is required"))
			return
		}
	}

	player, err := h.identity.Register(r.Context(), req.Username, req.Email, req.Password, req.DisplayName)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerFromModel(player))
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Username == "" || req.Password == "" {
		WriteError(w, NewInvalidRequestError("username and password are required"))
		return
	}

	creds, err := h.identity.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromCredentials(creds))
}

// Refresh handles POST /api/v1/players/refresh
func (h *PlayerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req request.RefreshRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.RefreshToken == "" {
		WriteError(w, NewInvalidRequestError("refresh_token is required"))
		return
	}

	creds, err := h.identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromCredentials(creds))
}

// Logout handles POST /api/v1/players/logout
func (h *PlayerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetToken(r.Context())
	if err := h.identity.Logout(r.Context(), token.Token); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	player, err := h.identity.FindPlayer(r.Context(), middleware.MustGetPlayerID(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// UpdateMe handles PATCH /api/v1/players/me
func (h *PlayerHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateProfileRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	player, err := h.identity.UpdateProfile(r.Context(), middleware.MustGetPlayerID(r.Context()), req.DisplayName)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// Lookup handles GET /api/v1/players/lookup?email=
func (h *PlayerHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		WriteError(w, NewInvalidRequestError("email is required"))
		return
	}

	player, err := h.identity.FindByEmail(r.Context(), email)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PublicPlayerFromModel(player))
}
