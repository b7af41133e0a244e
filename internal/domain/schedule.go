package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — расписание повторных запусков (--schedule).
type Schedule struct {
	// CronExpr — cron-выражение (5 полей или дескриптор "@every 1m").
	// Примеры:
	//   "*/5 * * * *"   — каждые 5 минут
	//   "@hourly"       — раз в час
	CronExpr string `json:"cron_expr"`

	// Targets — цели каждого запуска.
	Targets []string `json:"targets"`

	// NextDueAt — время следующего запуска.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastRunAt — время последнего запуска.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastRunID — ID последнего run.
	LastRunID *uuid.UUID `json:"last_run_id,omitempty"`

	// LastStatus — статус последнего run.
	LastStatus RunStatus `json:"last_status,omitempty"`

	// Runs — число выполненных запусков.
	Runs int `json:"runs"`
}

// IsDue проверяет, пора ли запускать.
func (s *Schedule) IsDue(now time.Time) bool {
	if s.NextDueAt == nil {
		return false
	}
	return now.After(*s.NextDueAt) || now.Equal(*s.NextDueAt)
}

// RecordRun записывает завершённый run и время следующего запуска.
func (s *Schedule) RecordRun(run *Run, nextDue time.Time) {
	s.LastRunAt = run.FinishedAt
	if s.LastRunAt == nil {
		now := time.Now()
		s.LastRunAt = &now
	}
	s.LastRunID = &run.ID
	s.LastStatus = run.Status
	s.NextDueAt = &nextDue
	s.Runs++
}
