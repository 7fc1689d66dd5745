// Package policy decides who may see and change which records. Every
// function is a pure predicate over directory users; a nil actor is denied.
package policy

import "perfdash/internal/domain/directory"

// Owned is implemented by records that belong to one user within a
// department, such as goals.
type Owned interface {
	OwnerID() string
	OwnerDepartment() directory.Department
}

// CanCreateGoalFor reports whether actor may assign a new goal to target.
// Managers assign to their own direct reports in their department; group
// leaders assign to managers in their department.
func CanCreateGoalFor(actor, target *directory.User) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.Department != target.Department || actor.ID == target.ID {
		return false
	}
	switch actor.Role {
	case directory.RoleManager:
		return target.Role == directory.RoleEmployee && target.ManagerID == actor.ID
	case directory.RoleGroupLeader:
		return target.Role == directory.RoleManager
	case directory.RoleEmployee, directory.RoleLDTeam:
		return false
	}
	return false
}

// CanCreateGoals reports whether the actor's role can create goals at all.
func CanCreateGoals(actor *directory.User) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case directory.RoleManager, directory.RoleGroupLeader:
		return true
	case directory.RoleEmployee, directory.RoleLDTeam:
		return false
	}
	return false
}

// EligibleGoalTargets filters users down to those actor may create goals for.
func EligibleGoalTargets(actor *directory.User, users []directory.User) []directory.User {
	out := []directory.User{}
	for i := range users {
		if CanCreateGoalFor(actor, &users[i]) {
			out = append(out, users[i])
		}
	}
	return out
}

// CanViewRecord applies the visibility scope to a single owned record.
func CanViewRecord(actor *directory.User, record Owned) bool {
	if actor == nil || record == nil {
		return false
	}
	switch actor.Role {
	case directory.RoleEmployee:
		return record.OwnerID() == actor.ID
	case directory.RoleManager, directory.RoleGroupLeader, directory.RoleLDTeam:
		return record.OwnerID() == actor.ID || record.OwnerDepartment() == actor.Department
	}
	return false
}

// VisibleGoals keeps the records within the actor's scope, preserving order.
func VisibleGoals[T Owned](actor *directory.User, all []T) []T {
	out := make([]T, 0, len(all))
	if actor == nil {
		return out
	}
	for _, record := range all {
		if CanViewRecord(actor, record) {
			out = append(out, record)
		}
	}
	return out
}

// CanUpdateGoalProgress allows the goal owner and anyone who could have
// assigned the goal to the owner.
func CanUpdateGoalProgress(actor, owner *directory.User) bool {
	if actor == nil || owner == nil {
		return false
	}
	if actor.ID == owner.ID {
		return true
	}
	return CanCreateGoalFor(actor, owner)
}

// CanManageUsers gates the backoffice.
func CanManageUsers(actor *directory.User) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case directory.RoleLDTeam, directory.RoleGroupLeader:
		return true
	case directory.RoleEmployee, directory.RoleManager:
		return false
	}
	return false
}

// CanTriggerSchedule allows an L&D user to run the monthly scheduler by hand.
func CanTriggerSchedule(actor *directory.User) bool {
	return actor != nil && actor.Role == directory.RoleLDTeam
}

// QuestionnaireRef is the part of a questionnaire the policy needs.
type QuestionnaireRef struct {
	EmployeeID         string
	ManagerID          string
	EmployeeDepartment directory.Department
}

// CanEvaluate allows only the questionnaire's manager to record the
// evaluation, generate the message and deliver it.
func CanEvaluate(actor *directory.User, q QuestionnaireRef) bool {
	return actor != nil && q.ManagerID != "" && actor.ID == q.ManagerID
}

func CanViewQuestionnaire(actor *directory.User, q QuestionnaireRef) bool {
	if actor == nil {
		return false
	}
	if actor.ID == q.ManagerID || actor.ID == q.EmployeeID {
		return true
	}
	switch actor.Role {
	case directory.RoleGroupLeader, directory.RoleLDTeam:
		return q.EmployeeDepartment == actor.Department
	case directory.RoleEmployee, directory.RoleManager:
		return false
	}
	return false
}
