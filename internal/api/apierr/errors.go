package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Codes for errors raised by the HTTP layer itself. Domain errors use the
// model.Code* values.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeInternalError  = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

var statuses = []struct {
	err     error
	status  int
	message string
}{
	{model.ErrPlayerNotFound, http.StatusNotFound, "Player not found"},
	{model.ErrSessionNotFound, http.StatusNotFound, "Session not found"},
	{model.ErrUsernameExists, http.StatusConflict, "Username or email already exists"},
	{model.ErrPlayerBusy, http.StatusConflict, "Player has a session to finish"},
	{model.ErrSessionConcluded, http.StatusConflict, "Session is concluded"},
	{model.ErrWrongTurn, http.StatusForbidden, "Not your turn"},
	{model.ErrNotParticipant, http.StatusForbidden, "Not a participant of this session"},
	{model.ErrSelfPlayNotAllowed, http.StatusBadRequest, "Cannot start a session against yourself"},
	{model.ErrInvalidUpdate, http.StatusBadRequest, "next_move must name a participant"},
	{model.ErrInvalidInput, http.StatusBadRequest, "Missing or invalid field"},
	{model.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	{model.ErrInvalidToken, http.StatusUnauthorized, "Invalid or expired token"},
	{model.ErrStoreUnavailable, http.StatusServiceUnavailable, "Store unavailable"},
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	code := model.ErrorCode(err)
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return &httpError{s.status, APIError{code, s.message}}
		}
	}

	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
