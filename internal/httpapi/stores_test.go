package httpapi

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"kinoteka.org/internal/auth"
)

// memState is the shared backing for the in-memory stores used by the
// handler tests.
type memState struct {
	mu      sync.Mutex
	seq     int
	users   map[string]*auth.User
	roles   map[string]auth.Role
	links   map[string]map[string]bool // userID -> roleID set
	history []auth.HistoryEntry

	access  map[string]string
	refresh map[string]string
	blocked map[string]bool

	failRegistry bool
}

func newMemState() *memState {
	return &memState{
		users:   make(map[string]*auth.User),
		roles:   make(map[string]auth.Role),
		links:   make(map[string]map[string]bool),
		access:  make(map[string]string),
		refresh: make(map[string]string),
		blocked: make(map[string]bool),
	}
}

func (s *memState) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memState) roleNames(userID string) []string {
	var names []string
	for roleID := range s.links[userID] {
		names = append(names, s.roles[roleID].Name)
	}
	sort.Strings(names)
	return names
}

type memUsers struct{ s *memState }

func (m memUsers) Create(ctx context.Context, u *auth.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.users {
		if existing.Email == u.Email {
			return auth.ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = m.s.nextID("user")
	}
	u.CreatedAt = time.Now().UTC()
	clone := *u
	m.s.users[u.ID] = &clone
	return nil
}

func (m memUsers) Find(ctx context.Context, id string) (*auth.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	clone := *u
	clone.Roles = m.s.roleNames(id)
	return &clone, nil
}

func (m memUsers) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for id, u := range m.s.users {
		if u.Email == email {
			clone := *u
			clone.Roles = m.s.roleNames(id)
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m memUsers) List(ctx context.Context) ([]auth.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []auth.User
	for _, u := range m.s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m memUsers) Update(ctx context.Context, id string, upd auth.UserUpdate) (*auth.User, error) {
	m.s.mu.Lock()
	u, ok := m.s.users[id]
	if !ok {
		m.s.mu.Unlock()
		return nil, auth.ErrNotFound
	}
	if upd.Email != nil {
		for otherID, other := range m.s.users {
			if otherID != id && other.Email == *upd.Email {
				m.s.mu.Unlock()
				return nil, auth.ErrConflict
			}
		}
		u.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	m.s.mu.Unlock()
	return m.Find(ctx, id)
}

func (m memUsers) UpdatePassword(ctx context.Context, id, hash string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m memUsers) Delete(ctx context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.s.users, id)
	delete(m.s.links, id)
	return nil
}

type memRoles struct{ s *memState }

func (m memRoles) Create(ctx context.Context, name string) (auth.Role, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.roles {
		if r.Name == name {
			return auth.Role{}, auth.ErrConflict
		}
	}
	role := auth.Role{ID: m.s.nextID("role"), Name: name, CreatedAt: time.Now().UTC()}
	m.s.roles[role.ID] = role
	return role, nil
}

func (m memRoles) Find(ctx context.Context, id string) (auth.Role, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	role, ok := m.s.roles[id]
	if !ok {
		return auth.Role{}, auth.ErrNotFound
	}
	return role, nil
}

func (m memRoles) List(ctx context.Context) ([]auth.Role, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []auth.Role
	for _, r := range m.s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memRoles) Rename(ctx context.Context, id, name string) (auth.Role, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	role, ok := m.s.roles[id]
	if !ok {
		return auth.Role{}, auth.ErrNotFound
	}
	for otherID, other := range m.s.roles {
		if otherID != id && other.Name == name {
			return auth.Role{}, auth.ErrConflict
		}
	}
	role.Name = name
	m.s.roles[id] = role
	return role, nil
}

func (m memRoles) Delete(ctx context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.roles[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.s.roles, id)
	for _, set := range m.s.links {
		delete(set, id)
	}
	return nil
}

func (m memRoles) Grant(ctx context.Context, roleID, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.roles[roleID]; !ok {
		return auth.ErrNotFound
	}
	if _, ok := m.s.users[userID]; !ok {
		return auth.ErrNotFound
	}
	if m.s.links[userID] == nil {
		m.s.links[userID] = make(map[string]bool)
	}
	if m.s.links[userID][roleID] {
		return auth.ErrConflict
	}
	m.s.links[userID][roleID] = true
	return nil
}

func (m memRoles) Revoke(ctx context.Context, roleID, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if !m.s.links[userID][roleID] {
		return auth.ErrNotFound
	}
	delete(m.s.links[userID], roleID)
	return nil
}

func (m memRoles) NamesForUser(ctx context.Context, userID string) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.roleNames(userID), nil
}

type memHistory struct{ s *memState }

func (m memHistory) Append(ctx context.Context, entry *auth.HistoryEntry) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = m.s.nextID("hist")
	}
	m.s.history = append(m.s.history, *entry)
	return nil
}

func (m memHistory) ListByUser(ctx context.Context, userID string, page, size int) (auth.HistoryPage, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := auth.HistoryPage{Items: []auth.HistoryEntry{}}
	for _, e := range m.s.history {
		if e.UserID == userID {
			out.Items = append(out.Items, e)
		}
	}
	out.Total = len(out.Items)
	return out, nil
}

type memRegistry struct{ s *memState }

func (m memRegistry) err() error {
	if m.s.failRegistry {
		return fmt.Errorf("registry unavailable")
	}
	return nil
}

func (m memRegistry) SavePair(ctx context.Context, userID, accessToken, refreshToken string) error {
	if err := m.err(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.access[userID] = accessToken
	m.s.refresh[userID] = refreshToken
	return nil
}

func (m memRegistry) SaveAccess(ctx context.Context, userID, accessToken string) error {
	if err := m.err(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.access[userID] = accessToken
	return nil
}

func (m memRegistry) MarkRevoked(ctx context.Context, jti, userID string) error {
	if err := m.err(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.blocked[jti] = true
	if userID != "" {
		delete(m.s.access, userID)
		delete(m.s.refresh, userID)
	}
	return nil
}

func (m memRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if err := m.err(); err != nil {
		return false, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.blocked[jti], nil
}

func (m memRegistry) IsRefreshCurrent(ctx context.Context, userID, refreshToken string) (bool, error) {
	if err := m.err(); err != nil {
		return false, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.refresh[userID] != "" && m.s.refresh[userID] == refreshToken, nil
}

func (m memRegistry) CurrentAccess(ctx context.Context, userID string) (string, error) {
	if err := m.err(); err != nil {
		return "", err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.access[userID], nil
}

func (m memRegistry) CurrentRefresh(ctx context.Context, userID string) (string, error) {
	if err := m.err(); err != nil {
		return "", err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.refresh[userID], nil
}
