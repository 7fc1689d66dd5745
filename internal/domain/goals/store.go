package goals

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/directory"
	"perfdash/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const goalColumns = "id, employee_id, COALESCE(created_by::text, ''), title, description, company_goal_alignment, department, target_date, status, progress, created_at, updated_at"

func scanGoal(row pgx.Row) (Goal, error) {
	var goal Goal
	var department, status string
	if err := row.Scan(&goal.ID, &goal.EmployeeID, &goal.CreatedBy, &goal.Title, &goal.Description, &goal.CompanyGoalAlignment, &department, &goal.TargetDate, &status, &goal.Progress, &goal.CreatedAt, &goal.UpdatedAt); err != nil {
		return Goal{}, err
	}
	dept, err := directory.ParseDepartment(department)
	if err != nil {
		return Goal{}, err
	}
	goal.Department = dept
	goal.Status = Status(status)
	return goal, nil
}

func (s *Store) CreateGoal(ctx context.Context, goal Goal) (Goal, error) {
	created, err := scanGoal(s.DB.QueryRow(ctx, `
    INSERT INTO goals (employee_id, created_by, title, description, company_goal_alignment, department, target_date, status, progress)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING `+goalColumns,
		goal.EmployeeID, db.NullIfEmpty(goal.CreatedBy), goal.Title, goal.Description, goal.CompanyGoalAlignment, goal.Department.String(), goal.TargetDate, string(goal.Status), goal.Progress))
	if db.IsForeignKeyViolation(err) {
		return Goal{}, fmt.Errorf("employee %s: %w", goal.EmployeeID, apperr.ErrNotFound)
	}
	return created, err
}

func (s *Store) GetGoal(ctx context.Context, id string) (Goal, error) {
	goal, err := scanGoal(s.DB.QueryRow(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = $1", id))
	if db.IsNoRows(err) || db.IsInvalidInput(err) {
		return Goal{}, fmt.Errorf("goal %s: %w", id, apperr.ErrNotFound)
	}
	return goal, err
}

func (s *Store) ListGoals(ctx context.Context, q ListQuery) ([]Goal, error) {
	query := "SELECT " + goalColumns + " FROM goals WHERE 1=1"
	var args []any
	if q.EmployeeID != "" {
		args = append(args, q.EmployeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if q.Department.Valid() {
		args = append(args, q.Department.String())
		query += fmt.Sprintf(" AND department = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, goal)
	}
	return out, rows.Err()
}

// UpdateProgress writes the new state unless the stored goal has completed
// in the meantime.
func (s *Store) UpdateProgress(ctx context.Context, goal Goal) (Goal, error) {
	updated, err := scanGoal(s.DB.QueryRow(ctx, `
    UPDATE goals
    SET status = $1, progress = $2, updated_at = now()
    WHERE id = $3 AND status <> 'completed'
    RETURNING `+goalColumns,
		string(goal.Status), goal.Progress, goal.ID))
	if db.IsNoRows(err) {
		if _, getErr := s.GetGoal(ctx, goal.ID); getErr != nil {
			return Goal{}, getErr
		}
		return Goal{}, fmt.Errorf("goal %s is completed: %w", goal.ID, apperr.ErrInvalidTransition)
	}
	return updated, err
}
