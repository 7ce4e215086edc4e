package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"kinoteka.org/internal/audit"
	"kinoteka.org/internal/auth"
)

// UsersRoute dispatches /auth/users/ and /auth/users/{id}/.
func (a *API) UsersRoute(w http.ResponseWriter, r *http.Request, data *auth.AuthData) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/auth/users/"), "/")
	if rest == "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listUsers(w, r)
		return
	}
	if strings.Contains(rest, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getUser(w, r, rest)
	case http.MethodPatch:
		a.patchUser(w, r, rest)
	case http.MethodDelete:
		a.deleteUser(w, r, rest)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.List(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	user, err := a.users.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, msgUserNotFound)
			return
		}
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type patchUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	FullName *string `json:"full_name"`
}

func (a *API) patchUser(w http.ResponseWriter, r *http.Request, id string) {
	var req patchUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgDataIncorrect)
		return
	}
	if req.Email == nil && req.Password == nil && req.FullName == nil {
		writeError(w, r, http.StatusUnprocessableEntity, msgDataIncorrect)
		return
	}

	upd := auth.UserUpdate{FullName: req.FullName}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email == "" || !strings.Contains(email, "@") {
			writeError(w, r, http.StatusUnprocessableEntity, "email must be a valid address")
			return
		}
		upd.Email = &email
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			writeError(w, r, http.StatusUnprocessableEntity, "password must be at least 8 characters")
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		upd.PasswordHash = &hash
	}

	user, err := a.users.Update(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, msgUserNotFound)
			return
		}
		handleAuthError(w, r, err)
		return
	}

	audit.LogEvent(r.Context(), "user.update", map[string]any{
		"user_id": user.ID,
	})
	writeJSON(w, http.StatusOK, user)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, msgUserNotFound)
			return
		}
		handleAuthError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "user.delete", map[string]any{
		"user_id": id,
	})
	writeDetail(w, http.StatusOK, msgDeleted)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword verifies the current credential before replacing it and
// invalidates the user's live sessions so old tokens die with the password.
func (a *API) ChangePassword(w http.ResponseWriter, r *http.Request, data *auth.AuthData) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgDataIncorrect)
		return
	}
	if err := auth.VerifyPassword(data.User.PasswordHash, req.OldPassword); err != nil {
		writeError(w, r, http.StatusUnauthorized, msgWrongPassword)
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, r, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if err := a.users.UpdatePassword(r.Context(), data.User.ID, hash); err != nil {
		handleAuthError(w, r, err)
		return
	}
	if err := a.sessions.Invalidate(r.Context(), data.User.ID); err != nil {
		handleAuthError(w, r, err)
		return
	}

	audit.LogEvent(r.Context(), "user.change_password", map[string]any{
		"user_id": data.User.ID,
	})
	writeDetail(w, http.StatusOK, msgPasswordChanged)
}
