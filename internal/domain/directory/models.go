package directory

import (
	"fmt"
	"strings"
	"time"
)

type Role uint8

const (
	RoleEmployee Role = iota + 1
	RoleManager
	RoleGroupLeader
	RoleLDTeam
)

var Roles = []Role{RoleEmployee, RoleManager, RoleGroupLeader, RoleLDTeam}

func (r Role) String() string {
	switch r {
	case RoleEmployee:
		return "employee"
	case RoleManager:
		return "manager"
	case RoleGroupLeader:
		return "group-leader"
	case RoleLDTeam:
		return "ld-team"
	}
	return ""
}

func (r Role) DisplayName() string {
	switch r {
	case RoleEmployee:
		return "Employee"
	case RoleManager:
		return "Manager"
	case RoleGroupLeader:
		return "Group Leader"
	case RoleLDTeam:
		return "L&D Team"
	}
	return ""
}

// Manages reports whether users may name this role as their manager.
func (r Role) Manages() bool {
	switch r {
	case RoleManager, RoleGroupLeader:
		return true
	case RoleEmployee, RoleLDTeam:
		return false
	}
	return false
}

func (r Role) Valid() bool {
	return r.String() != ""
}

func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, role := range Roles {
		if role.String() == normalized {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", value)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", r)
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type Department uint8

const (
	DepartmentRD Department = iota + 1
	DepartmentSM
	DepartmentGA
)

var Departments = []Department{DepartmentRD, DepartmentSM, DepartmentGA}

func (d Department) String() string {
	switch d {
	case DepartmentRD:
		return "rd"
	case DepartmentSM:
		return "sm"
	case DepartmentGA:
		return "ga"
	}
	return ""
}

func (d Department) DisplayName() string {
	switch d {
	case DepartmentRD:
		return "R&D"
	case DepartmentSM:
		return "Sales & Marketing"
	case DepartmentGA:
		return "General & Administrative"
	}
	return ""
}

func (d Department) Valid() bool {
	return d.String() != ""
}

func ParseDepartment(value string) (Department, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, dept := range Departments {
		if dept.String() == normalized {
			return dept, nil
		}
	}
	return 0, fmt.Errorf("unknown department %q", value)
}

func (d Department) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid department %d", d)
	}
	return []byte(d.String()), nil
}

func (d *Department) UnmarshalText(text []byte) error {
	parsed, err := ParseDepartment(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	Department   Department `json:"department"`
	ManagerID    string     `json:"managerId,omitempty"`
	SlackUserID  string     `json:"slackUserId,omitempty"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// RosterEntry pairs a user with the manager they report to.
type RosterEntry struct {
	ManagerID    string
	EmployeeID   string
	EmployeeName string
	Department   Department
}

type Filter struct {
	Role       Role
	Department Department
	ManagerID  string
}

type UserInput struct {
	Name        string
	Email       string
	Role        string
	Department  string
	ManagerID   string
	SlackUserID string
	Password    string
}
