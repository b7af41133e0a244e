package domain

import "time"

// TaskResult — результат одной задачи внутри run.
//
// Заполняется по событиям Engine: старт, пропуск, завершение.
type TaskResult struct {
	// Name — полное имя задачи ("db:migrate") или путь файла.
	Name string `json:"name"`

	// Kind — "task", "file" или "directory".
	Kind string `json:"kind"`

	// Status — текущий статус задачи.
	Status TaskStatus `json:"status"`

	// StartedAt — время старта action.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`
}

// NewTaskResult создаёт результат задачи без статуса.
func NewTaskResult(name, kind string) *TaskResult {
	return &TaskResult{Name: name, Kind: kind}
}

// Duration возвращает продолжительность выполнения.
func (t *TaskResult) Duration() time.Duration {
	if t.StartedAt == nil || t.FinishedAt == nil {
		return 0
	}
	return t.FinishedAt.Sub(*t.StartedAt)
}

// IsFinished возвращает true, если задача завершена.
func (t *TaskResult) IsFinished() bool {
	return t.Status.IsTerminal()
}

// MarkRunning переводит задачу в статус RUNNING.
func (t *TaskResult) MarkRunning() {
	now := time.Now()
	t.Status = TaskStatusRunning
	t.StartedAt = &now
}

// MarkSkipped — action не понадобился (файл актуален).
func (t *TaskResult) MarkSkipped() {
	now := time.Now()
	t.Status = TaskStatusSkipped
	t.FinishedAt = &now
}

// MarkSucceeded переводит задачу в статус SUCCEEDED.
func (t *TaskResult) MarkSucceeded() {
	now := time.Now()
	t.Status = TaskStatusSucceeded
	t.FinishedAt = &now
}

// MarkFailed переводит задачу в статус FAILED с ошибкой.
func (t *TaskResult) MarkFailed(err string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.FinishedAt = &now
	t.Error = err
}
