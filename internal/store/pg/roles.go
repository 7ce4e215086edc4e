package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"kinoteka.org/internal/auth"
)

// Roles returns the role store backed by this connection.
func (s *Store) Roles() *RoleStore { return &RoleStore{db: s.db} }

type RoleStore struct {
	db *sql.DB
}

var _ auth.RoleStore = (*RoleStore)(nil)

func (s *RoleStore) Create(ctx context.Context, name string) (auth.Role, error) {
	role := auth.Role{ID: uuid.NewString(), Name: name}
	err := s.db.QueryRowContext(ctx, `
		insert into user_roles (id, name)
		values ($1, $2)
		returning created_at
	`, role.ID, role.Name).Scan(&role.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.Role{}, auth.ErrConflict
		}
		return auth.Role{}, err
	}
	return role, nil
}

func (s *RoleStore) Find(ctx context.Context, id string) (auth.Role, error) {
	var role auth.Role
	err := s.db.QueryRowContext(ctx, `
		select id, name, created_at from user_roles where id = $1
	`, id).Scan(&role.ID, &role.Name, &role.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Role{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Role{}, err
	}
	return role, nil
}

func (s *RoleStore) List(ctx context.Context) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, created_at from user_roles order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var role auth.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (s *RoleStore) Rename(ctx context.Context, id, name string) (auth.Role, error) {
	res, err := s.db.ExecContext(ctx, `update user_roles set name = $1 where id = $2`, name, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.Role{}, auth.ErrConflict
		}
		return auth.Role{}, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return auth.Role{}, err
	}
	if aff == 0 {
		return auth.Role{}, auth.ErrNotFound
	}
	return s.Find(ctx, id)
}

func (s *RoleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from user_roles where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// Grant links a role to a user. A duplicate grant maps to ErrConflict, an
// unknown user or role to ErrNotFound.
func (s *RoleStore) Grant(ctx context.Context, roleID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users_user_roles (user_id, role_id) values ($1, $2)
	`, userID, roleID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.ErrConflict
			case pgErrForeignKeyViolation:
				return auth.ErrNotFound
			}
		}
		return err
	}
	return nil
}

func (s *RoleStore) Revoke(ctx context.Context, roleID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from users_user_roles where user_id = $1 and role_id = $2
	`, userID, roleID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *RoleStore) NamesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.name
		from user_roles r
		join users_user_roles uur on uur.role_id = r.id
		where uur.user_id = $1
		order by r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
