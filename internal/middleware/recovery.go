package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/errutil"
)

// PanicHandler writes the client response after a handler panicked
type PanicHandler func(w http.ResponseWriter, r *http.Request, err error)

// Recovery turns handler panics into errors carrying the request context and a
// stack trace, logs them, and lets handler answer the client.
// http.ErrAbortHandler is re-raised so the server can abort the response.
func Recovery(logger *slog.Logger, handler PanicHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := oops.
				In("http").
				With("method", r.Method, "path", r.URL.Path).
				Recover(func() {
					next.ServeHTTP(w, r)
				})
			if err == nil {
				return
			}
			if errors.Is(err, http.ErrAbortHandler) {
				panic(http.ErrAbortHandler)
			}

			errutil.LogError(logger, "panic recovered", err)
			handler(w, r, err)
		})
	}
}

// PlainPanicHandler answers with a bare 500
func PlainPanicHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
