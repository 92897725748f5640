package auth

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/kolamcraft/catalog/pkg/errors"
)

// Identity is a verified authenticated user.
type Identity struct {
	ID    string
	Email string
}

// Verifier validates a bearer token against an identity provider.
type Verifier interface {
	// Verify returns the identity the token belongs to, or an error if the
	// token is invalid, expired, or unknown to the provider.
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Gate decides whether a verified identity may perform write operations.
// Admission requires both a valid token and a match against the
// administrator email allow-list.
type Gate struct {
	verifier Verifier
	admins   map[string]bool
	logger   *slog.Logger
}

// NewGate creates a gate admitting the given administrator emails. The
// allow-list comparison is case-insensitive.
func NewGate(verifier Verifier, adminEmails []string, logger *slog.Logger) *Gate {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			admins[email] = true
		}
	}
	return &Gate{
		verifier: verifier,
		admins:   admins,
		logger:   logger,
	}
}

// Authorize checks the Authorization header value and returns the admitted
// identity. Outcomes map to 401 for missing or unverifiable tokens and 403
// for verified identities outside the allow-list.
func (g *Gate) Authorize(ctx context.Context, authHeader string) (*Identity, error) {
	token, ok := bearerToken(authHeader)
	if !ok {
		return nil, apperrors.Unauthorized("Unauthorized: No token provided")
	}

	identity, err := g.verifier.Verify(ctx, token)
	if err != nil || identity == nil {
		if err != nil {
			g.logger.WarnContext(ctx, "token verification failed",
				slog.String("error", err.Error()),
			)
		}
		return nil, apperrors.Unauthorized("Unauthorized: Invalid session")
	}

	if identity.Email == "" || !g.admins[strings.ToLower(identity.Email)] {
		return nil, apperrors.Forbidden("Forbidden: Admin access required")
	}

	return identity, nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. Any other shape is rejected.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := header[len(prefix):]
	if token == "" {
		return "", false
	}
	return token, true
}
