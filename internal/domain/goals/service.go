package goals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/directory"
	"perfdash/internal/domain/policy"
)

type Service struct {
	store StoreAPI
	users UserLookup
	now   func() time.Time
}

func NewService(store StoreAPI, users UserLookup) *Service {
	return &Service{store: store, users: users, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates the input, checks the role policy against the stored
// target user, and persists the goal in its initial state.
func (s *Service) Create(ctx context.Context, actor *directory.User, input CreateInput) (Goal, error) {
	if !policy.CanCreateGoals(actor) {
		return Goal{}, fmt.Errorf("create goal: %w", apperr.ErrPermission)
	}
	if _, err := ValidateCreate(input); err != nil {
		return Goal{}, err
	}

	target, err := s.users.GetUser(ctx, input.EmployeeID)
	if errors.Is(err, apperr.ErrNotFound) {
		var v apperr.Validation
		v.Add("employeeId", "must reference an existing user")
		return Goal{}, v.Err()
	}
	if err != nil {
		return Goal{}, err
	}
	if !policy.CanCreateGoalFor(actor, &target) {
		return Goal{}, fmt.Errorf("create goal for %s: %w", target.ID, apperr.ErrPermission)
	}

	goal, err := NewGoal(input, target.Department, actor.ID, s.now().UTC())
	if err != nil {
		return Goal{}, err
	}
	return s.store.CreateGoal(ctx, goal)
}

// List returns the goals within the actor's scope, with derived statuses,
// narrowed by the filter.
func (s *Service) List(ctx context.Context, actor *directory.User, filter Filter) ([]Goal, error) {
	if actor == nil {
		return []Goal{}, nil
	}
	visible, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	return Apply(visible, filter), nil
}

func (s *Service) Get(ctx context.Context, actor *directory.User, id string) (Goal, error) {
	goal, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	if !policy.CanViewRecord(actor, goal) {
		return Goal{}, fmt.Errorf("view goal %s: %w", id, apperr.ErrPermission)
	}
	goal.Status = DeriveStatus(goal, s.now())
	return goal, nil
}

// UpdateProgress applies a progress edit. The owner or whoever may assign
// goals to the owner can update; completed goals reject further edits.
func (s *Service) UpdateProgress(ctx context.Context, actor *directory.User, id string, progress int) (Goal, error) {
	goal, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	owner, err := s.users.GetUser(ctx, goal.EmployeeID)
	if err != nil {
		return Goal{}, err
	}
	if !policy.CanUpdateGoalProgress(actor, &owner) {
		return Goal{}, fmt.Errorf("update goal %s: %w", id, apperr.ErrPermission)
	}

	now := s.now().UTC()
	next, err := ApplyProgress(goal, progress, now)
	if err != nil {
		return Goal{}, err
	}
	updated, err := s.store.UpdateProgress(ctx, next)
	if err != nil {
		return Goal{}, err
	}
	updated.Status = DeriveStatus(updated, now)
	return updated, nil
}

// EligibleEmployees lists the users the actor may assign goals to.
func (s *Service) EligibleEmployees(ctx context.Context, actor *directory.User) ([]directory.User, error) {
	if !policy.CanCreateGoals(actor) {
		return []directory.User{}, nil
	}
	users, err := s.users.ListUsers(ctx, directory.Filter{Department: actor.Department})
	if err != nil {
		return nil, err
	}
	return policy.EligibleGoalTargets(actor, users), nil
}

// Stats aggregates the visible goals. Employees see only their own
// department row.
func (s *Service) Stats(ctx context.Context, actor *directory.User) ([]DepartmentStats, error) {
	if actor == nil {
		return []DepartmentStats{}, nil
	}
	visible, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx, directory.Filter{Department: actor.Department})
	if err != nil {
		return nil, err
	}
	if actor.Role == directory.RoleEmployee {
		users = []directory.User{*actor}
	}
	return BuildStats(visible, users, []directory.Department{actor.Department}), nil
}

func (s *Service) visible(ctx context.Context, actor *directory.User) ([]Goal, error) {
	query := ListQuery{Department: actor.Department}
	if actor.Role == directory.RoleEmployee {
		query = ListQuery{EmployeeID: actor.ID}
	}
	stored, err := s.store.ListGoals(ctx, query)
	if err != nil {
		return nil, err
	}
	return WithDerivedStatus(policy.VisibleGoals(actor, stored), s.now()), nil
}
