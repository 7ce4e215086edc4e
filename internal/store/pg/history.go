package pg

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"kinoteka.org/internal/auth"
)

// History returns the login-history store backed by this connection.
func (s *Store) History() *HistoryStore { return &HistoryStore{db: s.db} }

type HistoryStore struct {
	db *sql.DB
}

var _ auth.HistoryStore = (*HistoryStore)(nil)

// Append inserts one login record. Entries are never updated or deleted
// except through the user-deletion cascade.
func (s *HistoryStore) Append(ctx context.Context, entry *auth.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into login_history (id, user_id, date, user_agent, user_device_type)
		values ($1, $2, $3, $4, $5)
	`, entry.ID, entry.UserID, entry.Date, entry.UserAgent, string(entry.DeviceType))
	return err
}

// ListByUser returns one page of a user's history, newest first. Page
// numbers start at 1; prev/next are nil at the edges.
func (s *HistoryStore) ListByUser(ctx context.Context, userID string, page, size int) (auth.HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 1000 {
		size = 50
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `
		select count(*) from login_history where user_id = $1
	`, userID).Scan(&total); err != nil {
		return auth.HistoryPage{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, date, user_agent, user_device_type
		from login_history
		where user_id = $1
		order by date desc
		limit $2 offset $3
	`, userID, size, (page-1)*size)
	if err != nil {
		return auth.HistoryPage{}, err
	}
	defer rows.Close()

	result := auth.HistoryPage{Items: []auth.HistoryEntry{}, Total: total}
	for rows.Next() {
		var (
			entry      auth.HistoryEntry
			deviceType string
			agent      sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Date, &agent, &deviceType); err != nil {
			return auth.HistoryPage{}, err
		}
		if agent.Valid {
			entry.UserAgent = agent.String
		}
		entry.DeviceType = auth.DeviceType(deviceType)
		result.Items = append(result.Items, entry)
	}
	if err := rows.Err(); err != nil {
		return auth.HistoryPage{}, err
	}

	if page > 1 {
		prev := page - 1
		result.PrevNum = &prev
	}
	if page*size < total {
		next := page + 1
		result.NextNum = &next
	}
	return result, nil
}
