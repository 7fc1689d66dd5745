package goals

import (
	"fmt"
	"strings"
	"time"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/directory"
)

const dateLayout = "2006-01-02"

// ParseTargetDate accepts YYYY-MM-DD or RFC3339 and keeps only the UTC date.
func ParseTargetDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(dateLayout, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return truncateDate(parsed), nil
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Overdue reports whether the target date lies before today's date.
func Overdue(targetDate, now time.Time) bool {
	if targetDate.IsZero() {
		return false
	}
	return truncateDate(targetDate).Before(truncateDate(now))
}

// ValidateCreate checks the required fields and returns every issue at once.
func ValidateCreate(input CreateInput) (time.Time, error) {
	var v apperr.Validation
	v.Required("employeeId", input.EmployeeID)
	v.Required("title", input.Title)
	v.Required("description", input.Description)
	v.Required("companyGoalAlignment", input.CompanyGoalAlignment)
	v.Required("targetDate", input.TargetDate)

	if input.CompanyGoalAlignment != "" && !IsCompanyStrategy(input.CompanyGoalAlignment) {
		v.Add("companyGoalAlignment", "must be one of the company strategies")
	}
	var target time.Time
	if strings.TrimSpace(input.TargetDate) != "" {
		parsed, err := ParseTargetDate(input.TargetDate)
		if err != nil {
			v.Add("targetDate", "must be a valid date in YYYY-MM-DD format")
		}
		target = parsed
	}
	return target, v.Err()
}

// NewGoal builds a goal in its initial state. Ids come from the store.
func NewGoal(input CreateInput, department directory.Department, createdBy string, now time.Time) (Goal, error) {
	target, err := ValidateCreate(input)
	if err != nil {
		return Goal{}, err
	}
	return Goal{
		EmployeeID:           input.EmployeeID,
		CreatedBy:            createdBy,
		Title:                strings.TrimSpace(input.Title),
		Description:          strings.TrimSpace(input.Description),
		CompanyGoalAlignment: input.CompanyGoalAlignment,
		Department:           department,
		TargetDate:           target,
		Status:               StatusNotStarted,
		Progress:             MinProgress,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// ApplyProgress returns the goal after a progress update. Completed goals
// are terminal; 100 completes; an overdue goal stays behind schedule.
func ApplyProgress(goal Goal, progress int, now time.Time) (Goal, error) {
	if progress < MinProgress || progress > MaxProgress {
		var v apperr.Validation
		v.Add("progress", fmt.Sprintf("must be between %d and %d", MinProgress, MaxProgress))
		return Goal{}, v.Err()
	}
	if goal.Status == StatusCompleted {
		return Goal{}, fmt.Errorf("goal %s is completed: %w", goal.ID, apperr.ErrInvalidTransition)
	}

	goal.Progress = progress
	goal.UpdatedAt = now
	switch {
	case progress == MaxProgress:
		goal.Status = StatusCompleted
	case Overdue(goal.TargetDate, now):
		goal.Status = StatusBehindSchedule
	case progress == MinProgress:
		goal.Status = StatusNotStarted
	default:
		goal.Status = StatusInProgress
	}
	return goal, nil
}

// DeriveStatus is the status reported at read time.
func DeriveStatus(goal Goal, now time.Time) Status {
	if goal.Status != StatusCompleted && Overdue(goal.TargetDate, now) {
		return StatusBehindSchedule
	}
	return goal.Status
}

func WithDerivedStatus(list []Goal, now time.Time) []Goal {
	out := make([]Goal, len(list))
	for i, goal := range list {
		goal.Status = DeriveStatus(goal, now)
		out[i] = goal
	}
	return out
}
