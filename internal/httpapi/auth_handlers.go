package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"kinoteka.org/internal/audit"
	"kinoteka.org/internal/auth"
	"kinoteka.org/internal/obs"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (req *signupRequest) validate() error {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return errors.New("email must be a valid address")
	}
	if len(req.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

func (a *API) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgDataIncorrect)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	user := &auth.User{
		Email:        req.Email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
	}
	if err := a.users.Create(r.Context(), user); err != nil {
		handleAuthError(w, r, err)
		return
	}

	audit.LogEvent(r.Context(), "user.signup", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgDataIncorrect)
		return
	}

	pair, user, err := a.sessions.Login(r.Context(), req.Email, req.Password, r.UserAgent())
	if err != nil {
		obs.CountLogin("failure")
		switch {
		case errors.Is(err, auth.ErrNotFound):
			writeError(w, r, http.StatusNotFound, msgUserNotFound)
		case errors.Is(err, auth.ErrUnauthenticated):
			writeError(w, r, http.StatusUnauthorized, msgWrongPassword)
		default:
			handleAuthError(w, r, err)
		}
		return
	}

	obs.CountLogin("success")
	audit.LogEvent(r.Context(), "user.login", map[string]any{
		"user_id": user.ID,
	})
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) RefreshToken(w http.ResponseWriter, r *http.Request, data *auth.AuthData) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	access, err := a.sessions.Refresh(r.Context(), data)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": access})
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request, data *auth.AuthData) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := a.sessions.Logout(r.Context(), data); err != nil {
		handleAuthError(w, r, err)
		return
	}
	obs.CountRevocation()
	audit.LogEvent(r.Context(), "user.logout", map[string]any{
		"user_id": data.User.ID,
	})
	writeDetail(w, http.StatusOK, msgTokensRevoked)
}

func (a *API) LoginHistory(w http.ResponseWriter, r *http.Request, data *auth.AuthData) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 10)
	history, err := a.history.ListByUser(r.Context(), data.User.ID, page, size)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// IsInBlackList lets the sibling service ask whether an access token was
// revoked before its exp. An undecodable token reports as compromised, the
// caller must not trust it either way.
func (a *API) IsInBlackList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	token := r.URL.Query().Get("access_token")
	if token == "" {
		writeError(w, r, http.StatusUnprocessableEntity, msgDataIncorrect)
		return
	}
	compromised, err := a.sessions.IsCompromised(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeJSON(w, http.StatusOK, map[string]bool{"is_compromised": true})
			return
		}
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_compromised": compromised})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
