package questionnaires

import (
	"context"
	"encoding/json"

	"perfdash/internal/domain/directory"
)

type StoreAPI interface {
	// InsertQuestionnaires skips rows that already exist for the same
	// manager, employee and period, and returns only the new ones.
	InsertQuestionnaires(ctx context.Context, rows []Questionnaire) ([]Questionnaire, error)
	GetQuestionnaire(ctx context.Context, id string) (Questionnaire, error)
	ListQuestionnaires(ctx context.Context, q ListQuery) ([]Questionnaire, error)
	// SaveEvaluation upserts the evaluation and completes the questionnaire
	// atomically.
	SaveEvaluation(ctx context.Context, eval Evaluation) (Evaluation, error)
	GetEvaluation(ctx context.Context, questionnaireID string) (Evaluation, error)
	UpdateEvaluationMessage(ctx context.Context, questionnaireID, message, suggestions string) (Evaluation, error)
	MarkMessageSent(ctx context.Context, questionnaireID string) error
	AppendSlackMessage(ctx context.Context, msg SlackMessage) (SlackMessage, error)
	ListSlackMessages(ctx context.Context, questionnaireID string) ([]SlackMessage, error)
}

type Directory interface {
	GetUser(ctx context.Context, id string) (directory.User, error)
	Roster(ctx context.Context) ([]directory.RosterEntry, error)
}

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Messenger posts text to a chat destination. The raw response is returned
// whenever the remote side produced one, including on failure.
type Messenger interface {
	Post(ctx context.Context, destination, text string) (json.RawMessage, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, ntype, title, body string)
}
