package auth

import "time"

// User is an identity record. Roles carries the role names resolved at load
// time; the password hash never leaves the auth and store packages.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	Roles        []string  `json:"roles,omitempty"`
}

// Role is a named permission group.
type Role struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Superuser is exempt from every role restriction.
const Superuser = "superuser"

// DeviceType classifies the client that performed a login.
type DeviceType string

const (
	DeviceDesktop DeviceType = "ps"
	DeviceMobile  DeviceType = "mobile"
	DeviceOther   DeviceType = "other"
)

// HistoryEntry is an append-only login audit record.
type HistoryEntry struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Date       time.Time  `json:"date"`
	UserAgent  string     `json:"user_agent"`
	DeviceType DeviceType `json:"device_type"`
}

// HistoryPage is one page of a user's login history.
type HistoryPage struct {
	Items   []HistoryEntry `json:"items"`
	PrevNum *int           `json:"prev_num"`
	NextNum *int           `json:"next_num"`
	Total   int            `json:"total"`
}

// TokenPair holds both freshly issued credentials.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthData is what a passed authorization gate hands to the route handler.
type AuthData struct {
	User   *User
	Claims *Claims
}
