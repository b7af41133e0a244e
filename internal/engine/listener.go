package engine

import "time"

// Listener получает события выполнения задач.
//
// Методы вызываются из горутины, выполняющей задачу,
// и должны быть безопасны для конкурентного вызова.
type Listener interface {
	TaskStarted(t *Task)
	TaskSkipped(t *Task)
	TaskCompleted(t *Task, duration time.Duration)
	TaskFailed(t *Task, err error)
}

// ListenerFuncs — Listener из набора функций; nil-поля игнорируются.
type ListenerFuncs struct {
	Started   func(t *Task)
	Skipped   func(t *Task)
	Completed func(t *Task, duration time.Duration)
	Failed    func(t *Task, err error)
}

func (f ListenerFuncs) TaskStarted(t *Task) {
	if f.Started != nil {
		f.Started(t)
	}
}

func (f ListenerFuncs) TaskSkipped(t *Task) {
	if f.Skipped != nil {
		f.Skipped(t)
	}
}

func (f ListenerFuncs) TaskCompleted(t *Task, d time.Duration) {
	if f.Completed != nil {
		f.Completed(t, d)
	}
}

func (f ListenerFuncs) TaskFailed(t *Task, err error) {
	if f.Failed != nil {
		f.Failed(t, err)
	}
}
