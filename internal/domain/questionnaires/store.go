package questionnaires

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/directory"
	"perfdash/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const questionnaireSelect = `
    SELECT q.id, q.employee_id, q.employee_name, u.department, q.manager_id, q.month, q.year, q.due_date, q.status, q.created_at
    FROM monthly_questionnaires q
    JOIN users u ON u.id = q.employee_id`

func scanQuestionnaire(row pgx.Row) (Questionnaire, error) {
	var q Questionnaire
	var department, status string
	if err := row.Scan(&q.ID, &q.EmployeeID, &q.EmployeeName, &department, &q.ManagerID, &q.Month, &q.Year, &q.DueDate, &status, &q.CreatedAt); err != nil {
		return Questionnaire{}, err
	}
	dept, err := directory.ParseDepartment(department)
	if err != nil {
		return Questionnaire{}, err
	}
	q.EmployeeDepartment = dept
	q.Status = Status(status)
	return q, nil
}

func (s *Store) InsertQuestionnaires(ctx context.Context, rows []Questionnaire) ([]Questionnaire, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created := []Questionnaire{}
	for _, row := range rows {
		var q Questionnaire
		var status string
		err := tx.QueryRow(ctx, `
      INSERT INTO monthly_questionnaires (employee_id, employee_name, manager_id, month, year, due_date, status)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
      ON CONFLICT ON CONSTRAINT monthly_questionnaires_pair_period_key DO NOTHING
      RETURNING id, employee_id, employee_name, manager_id, month, year, due_date, status, created_at
    `, row.EmployeeID, row.EmployeeName, row.ManagerID, row.Month, row.Year, row.DueDate, string(row.Status)).
			Scan(&q.ID, &q.EmployeeID, &q.EmployeeName, &q.ManagerID, &q.Month, &q.Year, &q.DueDate, &status, &q.CreatedAt)
		if db.IsNoRows(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		q.Status = Status(status)
		q.EmployeeDepartment = row.EmployeeDepartment
		created = append(created, q)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) GetQuestionnaire(ctx context.Context, id string) (Questionnaire, error) {
	q, err := scanQuestionnaire(s.DB.QueryRow(ctx, questionnaireSelect+" WHERE q.id = $1", id))
	if db.IsNoRows(err) || db.IsInvalidInput(err) {
		return Questionnaire{}, fmt.Errorf("questionnaire %s: %w", id, apperr.ErrNotFound)
	}
	return q, err
}

func (s *Store) ListQuestionnaires(ctx context.Context, lq ListQuery) ([]Questionnaire, error) {
	query := questionnaireSelect + " WHERE (false"
	var args []any
	if lq.ParticipantID != "" {
		args = append(args, lq.ParticipantID)
		query += fmt.Sprintf(" OR q.manager_id = $%d OR q.employee_id = $%d", len(args), len(args))
	}
	if lq.Department.Valid() {
		args = append(args, lq.Department.String())
		query += fmt.Sprintf(" OR u.department = $%d", len(args))
	}
	query += ")"
	if lq.Month > 0 {
		args = append(args, lq.Month)
		query += fmt.Sprintf(" AND q.month = $%d", len(args))
	}
	if lq.Year > 0 {
		args = append(args, lq.Year)
		query += fmt.Sprintf(" AND q.year = $%d", len(args))
	}
	query += " ORDER BY q.year DESC, q.month DESC, q.employee_name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Questionnaire{}
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

const evaluationColumns = "id, questionnaire_id, overall_rating, goals_on_track, areas_for_improvement, manager_comments, employee_message, ai_suggestions, slack_message_sent, created_at, updated_at"

func scanEvaluation(row pgx.Row) (Evaluation, error) {
	var e Evaluation
	var rating string
	if err := row.Scan(&e.ID, &e.QuestionnaireID, &rating, &e.GoalsOnTrack, &e.AreasForImprovement, &e.ManagerComments, &e.EmployeeMessage, &e.AISuggestions, &e.SlackMessageSent, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Evaluation{}, err
	}
	e.OverallRating = Rating(rating)
	return e, nil
}

func (s *Store) SaveEvaluation(ctx context.Context, eval Evaluation) (Evaluation, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Evaluation{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "UPDATE monthly_questionnaires SET status = 'completed' WHERE id = $1", eval.QuestionnaireID)
	if db.IsInvalidInput(err) {
		return Evaluation{}, fmt.Errorf("questionnaire %s: %w", eval.QuestionnaireID, apperr.ErrNotFound)
	}
	if err != nil {
		return Evaluation{}, err
	}
	if tag.RowsAffected() == 0 {
		return Evaluation{}, fmt.Errorf("questionnaire %s: %w", eval.QuestionnaireID, apperr.ErrNotFound)
	}

	saved, err := scanEvaluation(tx.QueryRow(ctx, `
    INSERT INTO progress_evaluations (questionnaire_id, overall_rating, goals_on_track, areas_for_improvement, manager_comments, employee_message, ai_suggestions)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (questionnaire_id) DO UPDATE SET
      overall_rating = EXCLUDED.overall_rating,
      goals_on_track = EXCLUDED.goals_on_track,
      areas_for_improvement = EXCLUDED.areas_for_improvement,
      manager_comments = EXCLUDED.manager_comments,
      employee_message = EXCLUDED.employee_message,
      ai_suggestions = EXCLUDED.ai_suggestions,
      updated_at = now()
    RETURNING `+evaluationColumns,
		eval.QuestionnaireID, string(eval.OverallRating), eval.GoalsOnTrack, eval.AreasForImprovement, eval.ManagerComments, eval.EmployeeMessage, eval.AISuggestions))
	if err != nil {
		return Evaluation{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Evaluation{}, err
	}
	return saved, nil
}

func (s *Store) GetEvaluation(ctx context.Context, questionnaireID string) (Evaluation, error) {
	eval, err := scanEvaluation(s.DB.QueryRow(ctx, "SELECT "+evaluationColumns+" FROM progress_evaluations WHERE questionnaire_id = $1", questionnaireID))
	if db.IsNoRows(err) || db.IsInvalidInput(err) {
		return Evaluation{}, fmt.Errorf("evaluation for %s: %w", questionnaireID, apperr.ErrNotFound)
	}
	return eval, err
}

func (s *Store) UpdateEvaluationMessage(ctx context.Context, questionnaireID, message, suggestions string) (Evaluation, error) {
	eval, err := scanEvaluation(s.DB.QueryRow(ctx, `
    UPDATE progress_evaluations
    SET employee_message = $1, ai_suggestions = $2, updated_at = now()
    WHERE questionnaire_id = $3
    RETURNING `+evaluationColumns, message, suggestions, questionnaireID))
	if db.IsNoRows(err) || db.IsInvalidInput(err) {
		return Evaluation{}, fmt.Errorf("evaluation for %s: %w", questionnaireID, apperr.ErrNotFound)
	}
	return eval, err
}

func (s *Store) MarkMessageSent(ctx context.Context, questionnaireID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE progress_evaluations SET slack_message_sent = true, updated_at = now()
    WHERE questionnaire_id = $1
  `, questionnaireID)
	if db.IsInvalidInput(err) {
		return fmt.Errorf("evaluation for %s: %w", questionnaireID, apperr.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("evaluation for %s: %w", questionnaireID, apperr.ErrNotFound)
	}
	return nil
}

func (s *Store) AppendSlackMessage(ctx context.Context, msg SlackMessage) (SlackMessage, error) {
	var response []byte
	if len(msg.SlackResponse) > 0 && json.Valid(msg.SlackResponse) {
		response = msg.SlackResponse
	}
	var messageType string
	var raw []byte
	err := s.DB.QueryRow(ctx, `
    INSERT INTO slack_messages (questionnaire_id, employee_id, message_type, message_content, delivered, slack_response)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id, COALESCE(questionnaire_id::text, ''), employee_id, message_type, message_content, delivered, slack_response, sent_at
  `, db.NullIfEmpty(msg.QuestionnaireID), msg.EmployeeID, string(msg.MessageType), msg.MessageContent, msg.Delivered, response).
		Scan(&msg.ID, &msg.QuestionnaireID, &msg.EmployeeID, &messageType, &msg.MessageContent, &msg.Delivered, &raw, &msg.SentAt)
	if err != nil {
		return SlackMessage{}, err
	}
	msg.MessageType = MessageType(messageType)
	msg.SlackResponse = raw
	return msg, nil
}

func (s *Store) ListSlackMessages(ctx context.Context, questionnaireID string) ([]SlackMessage, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, COALESCE(questionnaire_id::text, ''), employee_id, message_type, message_content, delivered, slack_response, sent_at
    FROM slack_messages
    WHERE questionnaire_id = $1
    ORDER BY sent_at DESC
  `, questionnaireID)
	if db.IsInvalidInput(err) {
		return []SlackMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SlackMessage{}
	for rows.Next() {
		var msg SlackMessage
		var messageType string
		var raw []byte
		if err := rows.Scan(&msg.ID, &msg.QuestionnaireID, &msg.EmployeeID, &messageType, &msg.MessageContent, &msg.Delivered, &raw, &msg.SentAt); err != nil {
			return nil, err
		}
		msg.MessageType = MessageType(messageType)
		msg.SlackResponse = raw
		out = append(out, msg)
	}
	return out, rows.Err()
}
