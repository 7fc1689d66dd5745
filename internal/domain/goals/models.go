package goals

import (
	"time"

	"perfdash/internal/domain/directory"
)

type Goal struct {
	ID                   string               `json:"id"`
	EmployeeID           string               `json:"employeeId"`
	CreatedBy            string               `json:"createdBy,omitempty"`
	Title                string               `json:"title"`
	Description          string               `json:"description"`
	CompanyGoalAlignment string               `json:"companyGoalAlignment"`
	Department           directory.Department `json:"department"`
	TargetDate           time.Time            `json:"targetDate"`
	Status               Status               `json:"status"`
	Progress             int                  `json:"progress"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

func (g Goal) OwnerID() string {
	return g.EmployeeID
}

func (g Goal) OwnerDepartment() directory.Department {
	return g.Department
}

type CreateInput struct {
	EmployeeID           string
	Title                string
	Description          string
	CompanyGoalAlignment string
	TargetDate           string
}

type ListQuery struct {
	EmployeeID string
	Department directory.Department
}

type DepartmentStats struct {
	Department      directory.Department `json:"department"`
	Name            string               `json:"name"`
	TotalEmployees  int                  `json:"totalEmployees"`
	GoalsSet        int                  `json:"goalsSet"`
	GoalsCompleted  int                  `json:"goalsCompleted"`
	AverageProgress int                  `json:"averageProgress"`
	ByStatus        map[Status]int       `json:"byStatus"`
}
