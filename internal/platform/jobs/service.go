package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	JobMonthlyQuestionnaires = "monthly_questionnaires"
	JobSessionCleanup        = "session_cleanup"
)

// Func is a unit of background work. Its result is stored as the run's
// details.
type Func func(context.Context) (any, error)

// Service runs jobs on a single worker and records each run in job_runs.
// A nil DB disables the bookkeeping.
type Service struct {
	DB       *pgxpool.Pool
	queue    chan job
	schedule []periodic
}

type job struct {
	Type string
	Run  Func
}

type periodic struct {
	jobType  string
	interval time.Duration
	run      Func
}

func New(pool *pgxpool.Pool) *Service {
	return &Service{
		DB:    pool,
		queue: make(chan job, 32),
	}
}

// Every registers run to be enqueued once per interval after Start. A
// non-positive interval is ignored.
func (s *Service) Every(jobType string, interval time.Duration, run Func) {
	if interval <= 0 {
		return
	}
	s.schedule = append(s.schedule, periodic{jobType: jobType, interval: interval, run: run})
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	for _, p := range s.schedule {
		go s.tick(ctx, p)
	}
}

func (s *Service) Enqueue(jobType string, run Func) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "job_type", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run Func) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "job_type", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) tick(ctx context.Context, p periodic) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(p.jobType, p.run)
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := s.startRun(ctx, j.Type)

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
		details = map[string]any{"error": err.Error()}
	}
	s.finishRun(ctx, runID, status, details)
	return details, err
}

func (s *Service) startRun(ctx context.Context, jobType string) string {
	if s.DB == nil {
		return ""
	}
	var runID string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,'running')
    RETURNING id
  `, jobType).Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "job_type", jobType, "err", err)
	}
	return runID
}

func (s *Service) finishRun(ctx context.Context, runID, status string, details any) {
	if s.DB == nil || runID == "" {
		return
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		slog.Warn("job details marshal failed", "err", err)
		detailsJSON = []byte("{}")
	}
	if _, err := s.DB.Exec(context.WithoutCancel(ctx), `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID); err != nil {
		slog.Warn("job run update failed", "err", err)
	}
}
