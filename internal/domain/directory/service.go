package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"perfdash/internal/domain/apperr"
)

type PasswordHasher func(password string) (string, error)

type Service struct {
	store StoreAPI
	hash  PasswordHasher
}

func NewService(store StoreAPI, hash PasswordHasher) *Service {
	return &Service{store: store, hash: hash}
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.store.GetUserByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]User, error) {
	return s.store.ListUsers(ctx, filter)
}

func (s *Service) Roster(ctx context.Context) ([]RosterEntry, error) {
	return s.store.Roster(ctx)
}

func (s *Service) Create(ctx context.Context, input UserInput) (User, error) {
	user, err := s.fromInput(ctx, "", input)
	if err != nil {
		return User{}, err
	}
	if input.Password != "" {
		if s.hash == nil {
			return User{}, errors.New("password hasher not configured")
		}
		hashed, err := s.hash(input.Password)
		if err != nil {
			return User{}, err
		}
		user.PasswordHash = hashed
	}
	return s.store.CreateUser(ctx, user)
}

func (s *Service) Update(ctx context.Context, id string, input UserInput) (User, error) {
	current, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	user, err := s.fromInput(ctx, id, input)
	if err != nil {
		return User{}, err
	}
	user.ID = id
	if current.Role.Manages() && !user.Role.Manages() {
		reports, err := s.store.ListUsers(ctx, Filter{ManagerID: id})
		if err != nil {
			return User{}, fmt.Errorf("list direct reports: %w", err)
		}
		if len(reports) > 0 {
			var v apperr.Validation
			v.Add("role", fmt.Sprintf("must stay manager or group-leader while %d users report to this user", len(reports)))
			return User{}, v.Err()
		}
	}
	updated, err := s.store.UpdateUser(ctx, user)
	if err != nil {
		return User{}, err
	}
	if input.Password != "" && s.hash != nil {
		hashed, err := s.hash(input.Password)
		if err != nil {
			return User{}, err
		}
		if err := s.store.SetPassword(ctx, id, hashed); err != nil {
			return User{}, err
		}
	}
	return updated, nil
}

func (s *Service) fromInput(ctx context.Context, selfID string, input UserInput) (User, error) {
	var v apperr.Validation
	v.Required("name", input.Name)
	v.Required("email", input.Email)
	if input.Email != "" && !strings.Contains(input.Email, "@") {
		v.Add("email", "must be a valid email address")
	}

	role, err := ParseRole(input.Role)
	if err != nil {
		v.Add("role", "must be one of employee, manager, group-leader, ld-team")
	}
	department, err := ParseDepartment(input.Department)
	if err != nil {
		v.Add("department", "must be one of rd, sm, ga")
	}

	managerID := strings.TrimSpace(input.ManagerID)
	if managerID != "" {
		if managerID == selfID {
			v.Add("managerId", "must not reference the user itself")
		} else {
			manager, err := s.store.GetUser(ctx, managerID)
			switch {
			case errors.Is(err, apperr.ErrNotFound):
				v.Add("managerId", "must reference an existing user")
			case err != nil:
				return User{}, fmt.Errorf("resolve manager: %w", err)
			case !manager.Role.Manages():
				v.Add("managerId", "must reference a manager or group leader")
			}
		}
	}
	if err := v.Err(); err != nil {
		return User{}, err
	}

	return User{
		Name:        strings.TrimSpace(input.Name),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		Role:        role,
		Department:  department,
		ManagerID:   managerID,
		SlackUserID: strings.TrimSpace(input.SlackUserID),
	}, nil
}
