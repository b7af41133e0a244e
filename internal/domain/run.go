package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trigger — источник запуска run.
type Trigger string

const (
	// TriggerManual — запуск из командной строки.
	TriggerManual Trigger = "manual"

	// TriggerWatch — перезапуск после изменения файлов (--watch).
	TriggerWatch Trigger = "watch"

	// TriggerSchedule — запуск по cron-расписанию (--schedule).
	TriggerSchedule Trigger = "schedule"
)

// Run — один запуск набора целей.
//
// Run создаётся когда:
// - Пользователь запускает forge с целями (или задачей по умолчанию)
// - Watcher обнаружил изменение файлов
// - Scheduler сработал по расписанию
type Run struct {
	// ID — уникальный идентификатор run (атрибут run_id в логах).
	ID uuid.UUID `json:"id"`

	// Targets — цели в порядке выполнения, с аргументами: "db:seed[small]".
	Targets []string `json:"targets"`

	// Trigger — что запустило run.
	Trigger Trigger `json:"trigger"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Tasks — задачи, выполненные или пропущенные в этом run, в порядке старта.
	Tasks []*TaskResult `json:"tasks,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (успешного или с ошибкой).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED.
	Error string `json:"error,omitempty"`

	// ExitCode — код выхода процесса для этого run.
	ExitCode int `json:"exit_code"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING.
func NewRun(targets []string, trigger Trigger) *Run {
	return &Run{
		ID:        uuid.New(),
		Targets:   targets,
		Trigger:   trigger,
		Status:    RunStatusPending,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *Run) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
	r.ExitCode = 0
}

// MarkFailed переводит run в статус FAILED с ошибкой и кодом выхода.
func (r *Run) MarkFailed(err string, exitCode int) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
	r.ExitCode = exitCode
}

// MarkCancelled переводит run в статус CANCELLED.
func (r *Run) MarkCancelled(exitCode int) {
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
	r.ExitCode = exitCode
}

// Count возвращает число задач в статусе status.
func (r *Run) Count(status TaskStatus) int {
	n := 0
	for _, t := range r.Tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}
