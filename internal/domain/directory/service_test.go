package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"perfdash/internal/domain/apperr"
)

type memoryStore struct {
	users map[string]User
	next  int
}

func newMemoryStore(users ...User) *memoryStore {
	store := &memoryStore{users: map[string]User{}}
	for _, u := range users {
		store.users[u.ID] = u
	}
	return store
}

func (m *memoryStore) GetUser(_ context.Context, id string) (User, error) {
	user, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return user, nil
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, apperr.ErrNotFound
}

func (m *memoryStore) ListUsers(_ context.Context, filter Filter) ([]User, error) {
	var out []User
	for _, u := range m.users {
		if filter.ManagerID != "" && u.ManagerID != filter.ManagerID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryStore) CreateUser(_ context.Context, user User) (User, error) {
	for _, u := range m.users {
		if u.Email == user.Email {
			return User{}, apperr.ErrConflict
		}
	}
	m.next++
	user.ID = fmt.Sprintf("u%d", m.next)
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryStore) UpdateUser(_ context.Context, user User) (User, error) {
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryStore) SetPassword(_ context.Context, userID, hash string) error {
	user := m.users[userID]
	user.PasswordHash = hash
	m.users[userID] = user
	return nil
}

func (m *memoryStore) Roster(context.Context) ([]RosterEntry, error) {
	return nil, nil
}

func fakeHash(password string) (string, error) {
	return "hashed:" + password, nil
}

func TestCreateUserValidatesFields(t *testing.T) {
	svc := NewService(newMemoryStore(), fakeHash)

	_, err := svc.Create(context.Background(), UserInput{Email: "nope", Role: "admin", Department: "hr"})
	verr, ok := apperr.IsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := map[string]bool{"name": true, "email": true, "role": true, "department": true}
	for _, field := range verr.Fields() {
		delete(want, field)
	}
	if len(want) != 0 {
		t.Fatalf("missing issues for %v in %v", want, verr.Fields())
	}
}

func TestCreateUserManagerMustBeManagerOrGroupLeader(t *testing.T) {
	store := newMemoryStore(
		User{ID: "emp", Name: "Sarah", Email: "sarah@company.com", Role: RoleEmployee, Department: DepartmentRD},
		User{ID: "mgr", Name: "Mike", Email: "mike@company.com", Role: RoleManager, Department: DepartmentRD},
	)
	svc := NewService(store, fakeHash)

	_, err := svc.Create(context.Background(), UserInput{Name: "New", Email: "new@company.com", Role: "employee", Department: "rd", ManagerID: "emp"})
	if _, ok := apperr.IsValidation(err); !ok {
		t.Fatalf("expected validation error for employee manager, got %v", err)
	}

	_, err = svc.Create(context.Background(), UserInput{Name: "New", Email: "new@company.com", Role: "employee", Department: "rd", ManagerID: "ghost"})
	if _, ok := apperr.IsValidation(err); !ok {
		t.Fatalf("expected validation error for unknown manager, got %v", err)
	}

	user, err := svc.Create(context.Background(), UserInput{Name: " New ", Email: "New@Company.com", Role: "Employee", Department: "RD", ManagerID: "mgr", Password: "Secret123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "new@company.com" || user.Name != "New" {
		t.Fatalf("expected normalized user, got %+v", user)
	}
	if user.Role != RoleEmployee || user.Department != DepartmentRD || user.ManagerID != "mgr" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash != "hashed:Secret123" {
		t.Fatalf("expected hashed password, got %q", user.PasswordHash)
	}
}

func TestUpdateUserRejectsSelfManagement(t *testing.T) {
	store := newMemoryStore(User{ID: "mgr", Name: "Mike", Email: "mike@company.com", Role: RoleManager, Department: DepartmentRD})
	svc := NewService(store, fakeHash)

	_, err := svc.Update(context.Background(), "mgr", UserInput{Name: "Mike", Email: "mike@company.com", Role: "manager", Department: "rd", ManagerID: "mgr"})
	if _, ok := apperr.IsValidation(err); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.Update(context.Background(), "missing", UserInput{Name: "X", Email: "x@company.com", Role: "manager", Department: "rd"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateUserKeepsManagingRoleWhileReportsExist(t *testing.T) {
	store := newMemoryStore(
		User{ID: "mgr", Name: "Mike", Email: "mike@company.com", Role: RoleManager, Department: DepartmentRD},
		User{ID: "emp", Name: "Sarah", Email: "sarah@company.com", Role: RoleEmployee, Department: DepartmentRD, ManagerID: "mgr"},
		User{ID: "mgr2", Name: "Nora", Email: "nora@company.com", Role: RoleManager, Department: DepartmentRD},
	)
	svc := NewService(store, fakeHash)
	ctx := context.Background()

	tests := []struct {
		name    string
		id      string
		input   UserInput
		wantErr bool
	}{
		{name: "demote with reports", id: "mgr", input: UserInput{Name: "Mike", Email: "mike@company.com", Role: "employee", Department: "rd"}, wantErr: true},
		{name: "move to ld-team with reports", id: "mgr", input: UserInput{Name: "Mike", Email: "mike@company.com", Role: "ld-team", Department: "rd"}, wantErr: true},
		{name: "promote to group leader", id: "mgr", input: UserInput{Name: "Mike", Email: "mike@company.com", Role: "group-leader", Department: "rd"}},
		{name: "demote without reports", id: "mgr2", input: UserInput{Name: "Nora", Email: "nora@company.com", Role: "employee", Department: "rd"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tc.id, tc.input)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			verr, ok := apperr.IsValidation(err)
			if !ok || verr.Fields()[0] != "role" {
				t.Fatalf("expected role validation error, got %v", err)
			}
		})
	}
	if store.users["mgr"].Role != RoleGroupLeader {
		t.Fatalf("expected promotion to persist, got %v", store.users["mgr"].Role)
	}
}

func TestRoleAndDepartmentJSON(t *testing.T) {
	payload, err := json.Marshal(User{ID: "1", Role: RoleGroupLeader, Department: DepartmentSM})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["role"] != "group-leader" || decoded["department"] != "sm" {
		t.Fatalf("unexpected encoding: %s", payload)
	}
	if _, ok := decoded["PasswordHash"]; ok {
		t.Fatal("password hash must not be serialized")
	}

	var role Role
	if err := json.Unmarshal([]byte(`"hr"`), &role); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
	if _, err := json.Marshal(User{}); err == nil {
		t.Fatal("expected zero role to fail marshalling")
	}
}
