package testutil

import (
	"io"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost keeps password hashing fast in tests
const BcryptCost = bcrypt.MinCost

// NopLogger returns a logger that discards all output.
// Use this in tests to avoid log noise.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
