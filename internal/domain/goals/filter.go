package goals

import (
	"strings"

	"perfdash/internal/domain/directory"
)

// Filter narrows a goal listing. An empty Status matches every status.
type Filter struct {
	Search string
	Status Status
}

func (f Filter) Match(goal Goal) bool {
	if f.Status != "" && goal.Status != f.Status {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(goal.Title), term) ||
		strings.Contains(strings.ToLower(goal.Description), term)
}

func Apply(list []Goal, filter Filter) []Goal {
	out := make([]Goal, 0, len(list))
	for _, goal := range list {
		if filter.Match(goal) {
			out = append(out, goal)
		}
	}
	return out
}

func CountByStatus(list []Goal) map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, status := range Statuses {
		counts[status] = 0
	}
	for _, goal := range list {
		counts[goal.Status]++
	}
	return counts
}

// BuildStats aggregates goals per department. Employees are counted from
// the directory so departments without goals still appear.
func BuildStats(list []Goal, users []directory.User, departments []directory.Department) []DepartmentStats {
	out := make([]DepartmentStats, 0, len(departments))
	for _, dept := range departments {
		stats := DepartmentStats{Department: dept, Name: dept.DisplayName()}
		for _, user := range users {
			if user.Department == dept && user.Role == directory.RoleEmployee {
				stats.TotalEmployees++
			}
		}
		var inDept []Goal
		total := 0
		for _, goal := range list {
			if goal.Department != dept {
				continue
			}
			inDept = append(inDept, goal)
			total += goal.Progress
			if goal.Status == StatusCompleted {
				stats.GoalsCompleted++
			}
		}
		stats.GoalsSet = len(inDept)
		if stats.GoalsSet > 0 {
			stats.AverageProgress = (total + stats.GoalsSet/2) / stats.GoalsSet
		}
		stats.ByStatus = CountByStatus(inDept)
		out = append(out, stats)
	}
	return out
}
