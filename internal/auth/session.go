package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sessions orchestrates the token lifecycle: login issues a pair and records
// it in the registry, logout revokes both jtis, refresh reissues the access
// token, and role mutations invalidate every live session of a user.
type Sessions struct {
	users    UserStore
	history  HistoryStore
	registry TokenRegistry
	codec    *Codec
	now      func() time.Time
}

// SessionsOption configures Sessions.
type SessionsOption func(*Sessions)

// WithClock overrides the time source, useful for tests.
func WithClock(fn func() time.Time) SessionsOption {
	return func(s *Sessions) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewSessions constructs the session lifecycle controller.
func NewSessions(users UserStore, history HistoryStore, registry TokenRegistry, codec *Codec, opts ...SessionsOption) (*Sessions, error) {
	if users == nil || history == nil || registry == nil || codec == nil {
		return nil, errors.New("sessions: all dependencies are required")
	}
	s := &Sessions{
		users:    users,
		history:  history,
		registry: registry,
		codec:    codec,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Codec exposes the token codec for gates sharing this controller's secrets.
func (s *Sessions) Codec() *Codec { return s.codec }

// Registry exposes the token registry for gates.
func (s *Sessions) Registry() TokenRegistry { return s.registry }

// Login verifies the credential, issues a fresh access+refresh pair,
// registers it as the user's current pair and appends a login-history entry.
// An unknown email maps to ErrNotFound, a wrong password to
// ErrUnauthenticated; neither mutates the registry.
func (s *Sessions) Login(ctx context.Context, email, password, userAgent string) (TokenPair, *User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenPair{}, nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, nil, ErrUnauthenticated
	}

	access, err := s.codec.Issue(user.ID, user.Roles, KindAccess)
	if err != nil {
		return TokenPair{}, nil, err
	}
	refresh, err := s.codec.Issue(user.ID, user.Roles, KindRefresh)
	if err != nil {
		return TokenPair{}, nil, err
	}
	// Last write wins: a concurrent login for the same user simply
	// overwrites the pair.
	if err := s.registry.SavePair(ctx, user.ID, access, refresh); err != nil {
		return TokenPair{}, nil, err
	}

	entry := &HistoryEntry{
		UserID:     user.ID,
		Date:       s.now().UTC(),
		UserAgent:  userAgent,
		DeviceType: ClassifyDevice(userAgent),
	}
	if err := s.history.Append(ctx, entry); err != nil {
		return TokenPair{}, nil, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, user, nil
}

// Logout revokes the presented access token's jti and, through the current
// refresh pointer, the refresh jti as well, then drops the registry pair.
// A logout racing a fresh login may read a stale pointer and revoke the
// newer session; that race is accepted.
func (s *Sessions) Logout(ctx context.Context, data *AuthData) error {
	if data == nil || data.User == nil || data.Claims == nil {
		return ErrUnauthenticated
	}
	if err := s.registry.MarkRevoked(ctx, data.Claims.JTI, ""); err != nil {
		return err
	}
	refresh, err := s.registry.CurrentRefresh(ctx, data.User.ID)
	if err != nil {
		return err
	}
	if refresh == "" {
		// Refresh entry already expired; still force the pair out.
		return s.registry.MarkRevoked(ctx, data.Claims.JTI, data.User.ID)
	}
	claims, err := s.codec.Decode(refresh, KindRefresh)
	if err != nil {
		return s.registry.MarkRevoked(ctx, data.Claims.JTI, data.User.ID)
	}
	return s.registry.MarkRevoked(ctx, claims.JTI, data.User.ID)
}

// Refresh issues a new access token for a request that passed the refresh
// gate. The refresh token is not rotated; the registry's current-access
// entry is re-saved so the freshness check tracks the latest issued token.
func (s *Sessions) Refresh(ctx context.Context, data *AuthData) (string, error) {
	if data == nil || data.User == nil {
		return "", ErrUnauthenticated
	}
	access, err := s.codec.Issue(data.User.ID, data.User.Roles, KindAccess)
	if err != nil {
		return "", err
	}
	if err := s.registry.SaveAccess(ctx, data.User.ID, access); err != nil {
		return "", err
	}
	return access, nil
}

// Invalidate revokes a user's current access and refresh jtis and deletes
// the registry pair. Role mutations call this so the payload-embedded role
// snapshot cannot outlive the change.
func (s *Sessions) Invalidate(ctx context.Context, userID string) error {
	access, err := s.registry.CurrentAccess(ctx, userID)
	if err != nil {
		return err
	}
	if access != "" {
		if claims, err := s.codec.Decode(access, KindAccess); err == nil {
			if err := s.registry.MarkRevoked(ctx, claims.JTI, ""); err != nil {
				return err
			}
		}
	}
	refresh, err := s.registry.CurrentRefresh(ctx, userID)
	if err != nil {
		return err
	}
	if refresh != "" {
		if claims, err := s.codec.Decode(refresh, KindRefresh); err == nil {
			return s.registry.MarkRevoked(ctx, claims.JTI, userID)
		}
	}
	return nil
}

// IsCompromised reports whether the access token's jti is on the block list.
func (s *Sessions) IsCompromised(ctx context.Context, accessToken string) (bool, error) {
	claims, err := s.codec.Decode(accessToken, KindAccess)
	if err != nil {
		return false, err
	}
	return s.registry.IsRevoked(ctx, claims.JTI)
}
