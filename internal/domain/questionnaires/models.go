package questionnaires

import (
	"encoding/json"
	"time"

	"perfdash/internal/domain/directory"
	"perfdash/internal/domain/policy"
)

type Questionnaire struct {
	ID                 string               `json:"id"`
	EmployeeID         string               `json:"employeeId"`
	EmployeeName       string               `json:"employeeName"`
	EmployeeDepartment directory.Department `json:"department"`
	ManagerID          string               `json:"managerId"`
	Month              int                  `json:"month"`
	Year               int                  `json:"year"`
	DueDate            time.Time            `json:"dueDate"`
	Status             Status               `json:"status"`
	CreatedAt          time.Time            `json:"createdAt"`
}

func (q Questionnaire) Ref() policy.QuestionnaireRef {
	return policy.QuestionnaireRef{EmployeeID: q.EmployeeID, ManagerID: q.ManagerID, EmployeeDepartment: q.EmployeeDepartment}
}

type Evaluation struct {
	ID                  string    `json:"id"`
	QuestionnaireID     string    `json:"questionnaireId"`
	OverallRating       Rating    `json:"overallRating"`
	GoalsOnTrack        bool      `json:"goalsOnTrack"`
	AreasForImprovement string    `json:"areasForImprovement"`
	ManagerComments     string    `json:"managerComments"`
	EmployeeMessage     string    `json:"employeeMessage"`
	AISuggestions       string    `json:"aiSuggestions"`
	SlackMessageSent    bool      `json:"slackMessageSent"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// EvaluationInput is what a manager submits for a questionnaire.
type EvaluationInput struct {
	OverallRating       Rating
	GoalsOnTrack        bool
	AreasForImprovement string
	ManagerComments     string
	EmployeeMessage     string
	AISuggestions       string
}

// Detail is a questionnaire together with its evaluation, if any.
type Detail struct {
	Questionnaire
	Evaluation *Evaluation `json:"evaluation,omitempty"`
}

type GeneratedMessage struct {
	EmployeeMessage string      `json:"employeeMessage"`
	AISuggestions   string      `json:"aiSuggestions"`
	MessageType     MessageType `json:"messageType"`
}

// SlackMessage is one delivery attempt. Rows are never updated.
type SlackMessage struct {
	ID              string          `json:"id"`
	QuestionnaireID string          `json:"questionnaireId,omitempty"`
	EmployeeID      string          `json:"employeeId"`
	MessageType     MessageType     `json:"messageType"`
	MessageContent  string          `json:"messageContent"`
	Delivered       bool            `json:"delivered"`
	SlackResponse   json.RawMessage `json:"slackResponse,omitempty"`
	SentAt          time.Time       `json:"sentAt"`
}

// ListQuery selects questionnaires where ParticipantID is the manager or
// the employee, or whose employee belongs to Department. Set fields are
// combined with OR.
type ListQuery struct {
	ParticipantID string
	Department    directory.Department
	Month         int
	Year          int
}
