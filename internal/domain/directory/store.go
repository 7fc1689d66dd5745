package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const userColumns = "id, name, email, role, department, COALESCE(manager_id::text, ''), COALESCE(slack_user_id, ''), COALESCE(password_hash, ''), created_at, updated_at"

func scanUser(row pgx.Row) (User, error) {
	var user User
	var role, department string
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &role, &department, &user.ManagerID, &user.SlackUserID, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return User{}, err
	}
	var err error
	if user.Role, err = ParseRole(role); err != nil {
		return User{}, err
	}
	if user.Department, err = ParseDepartment(department); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	user, err := scanUser(s.DB.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if db.IsNoRows(err) || db.IsInvalidInput(err) {
		return User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return user, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	user, err := scanUser(s.DB.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE lower(email) = lower($1)", strings.TrimSpace(email)))
	if db.IsNoRows(err) {
		return User{}, fmt.Errorf("user %s: %w", email, apperr.ErrNotFound)
	}
	return user, err
}

func (s *Store) ListUsers(ctx context.Context, filter Filter) ([]User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE 1=1"
	var args []any
	if filter.Role.Valid() {
		args = append(args, filter.Role.String())
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Department.Valid() {
		args = append(args, filter.Department.String())
		query += fmt.Sprintf(" AND department = $%d", len(args))
	}
	if filter.ManagerID != "" {
		args = append(args, filter.ManagerID)
		query += fmt.Sprintf(" AND manager_id = $%d", len(args))
	}
	query += " ORDER BY name ASC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user User) (User, error) {
	created, err := scanUser(s.DB.QueryRow(ctx, `
    INSERT INTO users (name, email, role, department, manager_id, slack_user_id, password_hash)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING `+userColumns,
		user.Name, user.Email, user.Role.String(), user.Department.String(), db.NullIfEmpty(user.ManagerID), db.NullIfEmpty(user.SlackUserID), db.NullIfEmpty(user.PasswordHash)))
	if db.IsUniqueViolation(err) {
		return User{}, fmt.Errorf("email %s already registered: %w", user.Email, apperr.ErrConflict)
	}
	return created, err
}

func (s *Store) UpdateUser(ctx context.Context, user User) (User, error) {
	updated, err := scanUser(s.DB.QueryRow(ctx, `
    UPDATE users
    SET name = $1, email = $2, role = $3, department = $4, manager_id = $5, slack_user_id = $6, updated_at = now()
    WHERE id = $7
    RETURNING `+userColumns,
		user.Name, user.Email, user.Role.String(), user.Department.String(), db.NullIfEmpty(user.ManagerID), db.NullIfEmpty(user.SlackUserID), user.ID))
	if db.IsNoRows(err) {
		return User{}, fmt.Errorf("user %s: %w", user.ID, apperr.ErrNotFound)
	}
	if db.IsUniqueViolation(err) {
		return User{}, fmt.Errorf("email %s already registered: %w", user.Email, apperr.ErrConflict)
	}
	return updated, err
}

func (s *Store) SetPassword(ctx context.Context, userID, hash string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2", hash, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	return nil
}

// Roster lists every user whose manager reference resolves to a manager or
// group leader.
func (s *Store) Roster(ctx context.Context) ([]RosterEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT m.id, u.id, u.name, u.department
    FROM users u
    JOIN users m ON u.manager_id = m.id
    WHERE m.role IN ('manager', 'group-leader')
    ORDER BY m.id, u.name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []RosterEntry
	for rows.Next() {
		var entry RosterEntry
		var department string
		if err := rows.Scan(&entry.ManagerID, &entry.EmployeeID, &entry.EmployeeName, &department); err != nil {
			return nil, err
		}
		if entry.Department, err = ParseDepartment(department); err != nil {
			return nil, err
		}
		roster = append(roster, entry)
	}
	return roster, rows.Err()
}
