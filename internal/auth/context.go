package auth

import "context"

type authDataContextKey struct{}

// ContextWithAuthData attaches the authenticated identity and token claims
// to the request context.
func ContextWithAuthData(ctx context.Context, data *AuthData) context.Context {
	if data == nil {
		return ctx
	}
	return context.WithValue(ctx, authDataContextKey{}, data)
}

// AuthDataFromContext extracts the authenticated identity if a gate resolved
// one for this request.
func AuthDataFromContext(ctx context.Context) (*AuthData, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(authDataContextKey{}).(*AuthData)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	data, ok := AuthDataFromContext(ctx)
	if !ok || data.User == nil {
		return "", false
	}
	return data.User.ID, true
}
