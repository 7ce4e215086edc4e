package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"kinoteka.org/internal/auth"
)

// Guard protects a route with a token check. Routes declare which token kind
// they accept, which methods skip the check, and which roles may pass.
// A nil role list admits any authenticated user; superuser passes always.
type Guard struct {
	codec    *auth.Codec
	registry auth.TokenRegistry
	users    auth.UserStore
	kind     auth.TokenKind
	bypass   map[string]struct{}
	allowed  []string
}

type GuardOption func(*Guard)

// WithBypassMethods lets the listed HTTP methods through unauthenticated.
func WithBypassMethods(methods ...string) GuardOption {
	return func(g *Guard) {
		for _, m := range methods {
			g.bypass[strings.ToUpper(m)] = struct{}{}
		}
	}
}

// WithAllowedRoles restricts the route to users holding at least one of the
// given roles. Calling it with no roles is a registration bug, not a policy,
// so it panics instead of silently locking the route.
func WithAllowedRoles(roles ...string) GuardOption {
	if len(roles) == 0 {
		panic("httpapi: guard registered with an empty allowed-roles set")
	}
	return func(g *Guard) {
		g.allowed = append([]string(nil), roles...)
	}
}

func NewGuard(codec *auth.Codec, registry auth.TokenRegistry, users auth.UserStore, kind auth.TokenKind, opts ...GuardOption) *Guard {
	if codec == nil || registry == nil || users == nil {
		panic("httpapi: guard requires codec, registry and user store")
	}
	g := &Guard{
		codec:    codec,
		registry: registry,
		users:    users,
		kind:     kind,
		bypass:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New(msgWrongHeader)
	}
	return parts[1], nil
}

// Wrap authenticates the request and hands validated auth data to next.
// For bypassed methods data is nil.
func (g *Guard) Wrap(next func(http.ResponseWriter, *http.Request, *auth.AuthData)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := g.bypass[r.Method]; ok {
			next(w, r, nil)
			return
		}

		token, err := extractBearerToken(r)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := g.codec.Decode(token, g.kind)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, msgInvalidToken)
			return
		}

		// Registry failures reject the request; a down registry must not
		// admit a possibly revoked token.
		revoked, err := g.registry.IsRevoked(r.Context(), claims.JTI)
		if err != nil || revoked {
			writeError(w, r, http.StatusUnauthorized, msgInvalidToken)
			return
		}

		user, err := g.users.Find(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, msgUserNotFound)
				return
			}
			writeError(w, r, http.StatusUnauthorized, msgInvalidToken)
			return
		}

		if g.kind == auth.KindRefresh {
			current, err := g.registry.IsRefreshCurrent(r.Context(), claims.UserID, token)
			if err != nil || !current {
				writeError(w, r, http.StatusUnauthorized, msgInvalidToken)
				return
			}
		}

		if !g.roleAllowed(claims) {
			writeError(w, r, http.StatusForbidden, msgActionNotAllowed)
			return
		}

		data := &auth.AuthData{User: user, Claims: claims}
		next(w, r.WithContext(auth.ContextWithAuthData(r.Context(), data)), data)
	}
}

// roleAllowed decides against the token's role snapshot. Revocation on role
// change keeps the snapshot honest for the token's remaining lifetime.
func (g *Guard) roleAllowed(claims *auth.Claims) bool {
	if claims.HasRole(auth.Superuser) {
		return true
	}
	if g.allowed == nil {
		return true
	}
	for _, role := range g.allowed {
		if claims.HasRole(role) {
			return true
		}
	}
	return false
}
