package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api/apierr"
)

// maxBodyBytes bounds request bodies; boards are small JSON documents
const maxBodyBytes = 1 << 20

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// decode reads a JSON request body into v
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return NewInvalidRequestError("request body is required")
	case errors.As(err, &tooLarge):
		return NewInvalidRequestError("request body is too large")
	default:
		return NewInvalidRequestError("invalid request body")
	}
}
