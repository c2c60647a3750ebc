// Package auth implements the bearer-token gate for mutating operations.
package auth

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
)

// ErrUnauthorized is returned when a configured token is not presented.
var ErrUnauthorized = errors.New("unauthorized")

// Guard checks the Authorization header of mutating requests.
// A Guard built with an empty token lets every request through.
type Guard struct {
	token string
}

// New creates a Guard for token. An empty token disables the check.
func New(token string) *Guard {
	return &Guard{token: token}
}

// Enabled reports whether a token was configured.
func (g *Guard) Enabled() bool {
	return g != nil && g.token != ""
}

// Check validates an Authorization header value.
//
// The header must be exactly "<scheme> <token>" with a single space, the
// scheme matching "bearer" case-insensitively and the token matching the
// configured token byte for byte.
func (g *Guard) Check(header string) error {
	if !g.Enabled() {
		return nil
	}

	parts := strings.Split(header, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") &&
		subtle.ConstantTimeCompare([]byte(parts[1]), []byte(g.token)) == 1 {
		return nil
	}

	slog.Info("authentication failed", "header", redact(parts))
	return ErrUnauthorized
}

// redact keeps the scheme and the shape of the header for logging but never
// the presented credential.
func redact(parts []string) string {
	switch {
	case len(parts) == 1 && parts[0] == "":
		return "<missing>"
	case len(parts) == 2:
		return parts[0] + " <redacted>"
	default:
		return "<malformed>"
	}
}
