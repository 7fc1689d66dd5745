package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"perfdash/internal/platform/db"
)

const (
	ActionGoalCreated       = "goal.created"
	ActionGoalProgress      = "goal.progress_updated"
	ActionUserCreated       = "user.created"
	ActionUserUpdated       = "user.updated"
	ActionEvaluationSaved   = "evaluation.saved"
	ActionMessageGenerated  = "evaluation.message_generated"
	ActionMessageDelivered  = "evaluation.message_delivered"
	ActionQuestionnairesRun = "questionnaires.scheduled"
)

const (
	EntityGoal          = "goal"
	EntityUser          = "user"
	EntityQuestionnaire = "questionnaire"
)

// Entry describes one mutating action. Before and After are marshalled to
// JSON when set.
type Entry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	IP         string
	Before     any
	After      any
}

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId,omitempty"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId,omitempty"`
	IP         string          `json:"ip,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
}

type Service struct {
	DB *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Service {
	return &Service{DB: pool}
}

func marshalOptional(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (s *Service) Record(ctx context.Context, entry Entry) error {
	before, err := marshalOptional(entry.Before)
	if err != nil {
		return err
	}
	after, err := marshalOptional(entry.After)
	if err != nil {
		return err
	}

	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, db.NullIfEmpty(entry.ActorID), entry.Action, entry.EntityType, entry.EntityID, before, after, entry.RequestID, entry.IP)
	return err
}

func (s *Service) List(ctx context.Context, filter Filter, limit int) ([]Event, error) {
	query := `SELECT id, COALESCE(actor_user_id::text, ''), action, entity_type, entity_id,
    COALESCE(request_id, ''), COALESCE(ip, ''), created_at, before_json, after_json
    FROM audit_events WHERE 1=1`
	var args []any
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var evt Event
		var before, after []byte
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt, &before, &after); err != nil {
			return nil, err
		}
		evt.Before, evt.After = before, after
		out = append(out, evt)
	}
	return out, rows.Err()
}
