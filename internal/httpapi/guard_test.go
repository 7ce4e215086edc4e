package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kinoteka.org/internal/auth"
)

func newTestGuardSetup(t *testing.T) (*memState, *auth.Codec) {
	t.Helper()
	state := newMemState()
	codec, err := auth.NewCodec("access-secret", "refresh-secret", time.Hour, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	state.users["user-1"] = &auth.User{ID: "user-1", Email: "viewer@kinoteka.org"}
	return state, codec
}

func serveGuarded(g *Guard, token, method string) *httptest.ResponseRecorder {
	handler := g.Wrap(func(w http.ResponseWriter, r *http.Request, data *auth.AuthData) {
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(method, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestGuardAcceptsValidToken(t *testing.T) {
	state, codec := newTestGuardSetup(t)
	g := NewGuard(codec, memRegistry{s: state}, memUsers{s: state}, auth.KindAccess)

	token, err := codec.Issue("user-1", nil, auth.KindAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if rr := serveGuarded(g, token, http.MethodPost); rr.Code != http.StatusNoContent {
		t.Fatalf("valid token rejected: %d", rr.Code)
	}
}

func TestGuardRejectsRevokedJTI(t *testing.T) {
	state, codec := newTestGuardSetup(t)
	g := NewGuard(codec, memRegistry{s: state}, memUsers{s: state}, auth.KindAccess)

	token, _ := codec.Issue("user-1", nil, auth.KindAccess)
	claims, err := codec.Decode(token, auth.KindAccess)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	state.blocked[claims.JTI] = true

	if rr := serveGuarded(g, token, http.MethodPost); rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token accepted: %d", rr.Code)
	}
}

func TestGuardRejectsDeletedUser(t *testing.T) {
	state, codec := newTestGuardSetup(t)
	g := NewGuard(codec, memRegistry{s: state}, memUsers{s: state}, auth.KindAccess)

	token, _ := codec.Issue("ghost", nil, auth.KindAccess)
	if rr := serveGuarded(g, token, http.MethodPost); rr.Code != http.StatusNotFound {
		t.Fatalf("token of deleted user: %d", rr.Code)
	}
}

func TestGuardRefreshFreshness(t *testing.T) {
	state, codec := newTestGuardSetup(t)
	g := NewGuard(codec, memRegistry{s: state}, memUsers{s: state}, auth.KindRefresh)

	stale, _ := codec.Issue("user-1", nil, auth.KindRefresh)
	current, _ := codec.Issue("user-1", nil, auth.KindRefresh)
	state.refresh["user-1"] = current

	if rr := serveGuarded(g, stale, http.MethodPost); rr.Code != http.StatusUnauthorized {
		t.Fatalf("stale refresh accepted: %d", rr.Code)
	}
	if rr := serveGuarded(g, current, http.MethodPost); rr.Code != http.StatusNoContent {
		t.Fatalf("current refresh rejected: %d", rr.Code)
	}
}

func TestGuardRoleMatrix(t *testing.T) {
	state, codec := newTestGuardSetup(t)
	g := NewGuard(codec, memRegistry{s: state}, memUsers{s: state}, auth.KindAccess,
		WithAllowedRoles("moderator"))

	cases := []struct {
		name  string
		roles []string
		want  int
	}{
		{"no roles", nil, http.StatusForbidden},
		{"other role", []string{"subscriber"}, http.StatusForbidden},
		{"allowed role", []string{"moderator"}, http.StatusNoContent},
		{"superuser bypass", []string{auth.Superuser}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := codec.Issue("user-1", tc.roles, auth.KindAccess)
			if err != nil {
				t.Fatalf("Issue: %v", err)
			}
			if rr := serveGuarded(g, token, http.MethodPost); rr.Code != tc.want {
				t.Fatalf("roles %v: got %d, want %d", tc.roles, rr.Code, tc.want)
			}
		})
	}
}

func TestGuardBypassMethods(t *testing.T) {
	state, codec := newTestGuardSetup(t)
	g := NewGuard(codec, memRegistry{s: state}, memUsers{s: state}, auth.KindAccess,
		WithAllowedRoles(auth.Superuser), WithBypassMethods(http.MethodGet))

	if rr := serveGuarded(g, "", http.MethodGet); rr.Code != http.StatusNoContent {
		t.Fatalf("bypassed method rejected: %d", rr.Code)
	}
	if rr := serveGuarded(g, "", http.MethodPost); rr.Code != http.StatusUnauthorized {
		t.Fatalf("non-bypassed method admitted: %d", rr.Code)
	}
}

func TestGuardEmptyRoleSetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for empty allowed-roles set")
		}
	}()
	WithAllowedRoles()
}
