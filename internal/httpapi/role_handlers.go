package httpapi

import (
	"net/http"
	"strings"

	"kinoteka.org/internal/audit"
	"kinoteka.org/internal/auth"
)

// RolesRoute dispatches /auth/roles/, /auth/roles/{id}/ and
// /auth/roles/{id}/users/.
func (a *API) RolesRoute(w http.ResponseWriter, r *http.Request, data *auth.AuthData) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/auth/roles/"), "/")
	if rest == "" {
		switch r.Method {
		case http.MethodGet:
			a.listRoles(w, r)
		case http.MethodPost:
			a.createRole(w, r)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	}

	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1:
		a.roleItem(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "users":
		a.roleMembership(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (a *API) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := a.roles.List(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

type roleRequest struct {
	Name string `json:"name"`
}

func (req *roleRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 64 {
		return auth.ErrInvalidInput
	}
	return nil
}

func (a *API) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgDataIncorrect)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, msgDataIncorrect)
		return
	}

	role, err := a.roles.Create(r.Context(), req.Name)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "role.create", map[string]any{
		"role_id": role.ID,
		"name":    role.Name,
	})
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) roleItem(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		role, err := a.roles.Find(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, role)
	case http.MethodPatch:
		var req roleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, msgDataIncorrect)
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, msgDataIncorrect)
			return
		}
		role, err := a.roles.Rename(r.Context(), id, req.Name)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		audit.LogEvent(r.Context(), "role.rename", map[string]any{
			"role_id": role.ID,
			"name":    role.Name,
		})
		writeJSON(w, http.StatusOK, role)
	case http.MethodDelete:
		if err := a.roles.Delete(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		audit.LogEvent(r.Context(), "role.delete", map[string]any{
			"role_id": id,
		})
		writeDetail(w, http.StatusOK, msgDeleted)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

type membershipRequest struct {
	UserID string `json:"user_id"`
}

// roleMembership grants or revokes a role for a user. Either way the user's
// live tokens carry a stale role snapshot afterwards, so the sessions are
// invalidated and the user has to log in again.
func (a *API) roleMembership(w http.ResponseWriter, r *http.Request, roleID string) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodPost, http.MethodDelete)
		return
	}
	var req membershipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgDataIncorrect)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, r, http.StatusUnprocessableEntity, msgDataIncorrect)
		return
	}

	var (
		err   error
		event string
	)
	if r.Method == http.MethodPost {
		err = a.roles.Grant(r.Context(), roleID, req.UserID)
		event = "role.grant"
	} else {
		err = a.roles.Revoke(r.Context(), roleID, req.UserID)
		event = "role.revoke"
	}
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	if err := a.sessions.Invalidate(r.Context(), req.UserID); err != nil {
		handleAuthError(w, r, err)
		return
	}

	audit.LogEvent(r.Context(), event, map[string]any{
		"role_id": roleID,
		"user_id": req.UserID,
	})
	writeDetail(w, http.StatusOK, "Role membership updated")
}
