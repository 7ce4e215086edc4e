package auth

import "context"

// UserStore manages identity records.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// UserUpdate carries optional identity mutations; nil fields are untouched.
// PasswordHash must already be hashed, plaintext never reaches a store.
type UserUpdate struct {
	Email        *string
	PasswordHash *string
	FullName     *string
}

// RoleStore manages roles and user-role links.
type RoleStore interface {
	Create(ctx context.Context, name string) (Role, error)
	Find(ctx context.Context, id string) (Role, error)
	List(ctx context.Context) ([]Role, error)
	Rename(ctx context.Context, id, name string) (Role, error)
	Delete(ctx context.Context, id string) error
	Grant(ctx context.Context, roleID, userID string) error
	Revoke(ctx context.Context, roleID, userID string) error
	NamesForUser(ctx context.Context, userID string) ([]string, error)
}

// HistoryStore appends and pages login history.
type HistoryStore interface {
	Append(ctx context.Context, entry *HistoryEntry) error
	ListByUser(ctx context.Context, userID string, page, size int) (HistoryPage, error)
}

// TokenRegistry tracks the current token pair per user and revoked jtis.
// All methods must surface store errors; a registry outage is never treated
// as "not revoked" or "not current".
type TokenRegistry interface {
	SavePair(ctx context.Context, userID, accessToken, refreshToken string) error
	SaveAccess(ctx context.Context, userID, accessToken string) error
	MarkRevoked(ctx context.Context, jti, userID string) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	IsRefreshCurrent(ctx context.Context, userID, refreshToken string) (bool, error)
	CurrentAccess(ctx context.Context, userID string) (string, error)
	CurrentRefresh(ctx context.Context, userID string) (string, error)
}
