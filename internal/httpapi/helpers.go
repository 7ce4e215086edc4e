package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"kinoteka.org/internal/auth"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func writeDetail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"detail": msg})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleAuthError maps domain sentinels onto the HTTP taxonomy. Token
// failures all collapse into one 401 message so responses cannot be used as
// an oracle for which check rejected the credential.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, msgInvalidToken)
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, msgActionNotAllowed)
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, msgNotFound)
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, msgConflict)
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// User-visible messages kept in one place, wording matches the deployed API.
const (
	msgWrongHeader      = `Authorization header is wrong. It must be like "Bearer <token>".`
	msgInvalidToken     = "The token is invalid or has been compromised. Please, try login again."
	msgActionNotAllowed = "You are not allowed to perform this action"
	msgUserNotFound     = "User not found"
	msgNotFound         = "Not found"
	msgConflict         = "Already exists"
	msgWrongPassword    = "Password is wrong"
	msgTokensRevoked    = "Access and refresh tokens has been revoked"
	msgPasswordChanged  = "Password was changed successfully!"
	msgDeleted          = "Deleted"
	msgDataIncorrect    = "The input data is incorrect or missing"
)
