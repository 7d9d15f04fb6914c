package auth

import (
	"net/http"
	"strings"

	"braincraft/internal/domain"
)

// CookieName is the session cookie set on login.
const CookieName = "auth_token"

// SessionProvider authenticates requests from the session cookie or a
// bearer token.
type SessionProvider struct {
	tokens *Tokens
}

func NewSessionProvider(tokens *Tokens) *SessionProvider {
	return &SessionProvider{tokens: tokens}
}

// Authenticate returns the caller's user id or domain.ErrUnauthorized.
func (p *SessionProvider) Authenticate(r *http.Request) (string, error) {
	raw := bearerToken(r)
	if raw == "" {
		if c, err := r.Cookie(CookieName); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		return "", domain.ErrUnauthorized
	}
	claims, err := p.tokens.Verify(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
