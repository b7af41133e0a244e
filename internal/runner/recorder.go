package runner

import (
	"sync"
	"time"

	"github.com/shaiso/Forge/internal/domain"
	"github.com/shaiso/Forge/internal/engine"
)

// recorder — engine.Listener, записывающий задачи текущего run.
// Подключается к Engine один раз; run переключается через begin/end.
type recorder struct {
	mu     sync.Mutex
	run    *domain.Run
	byTask map[*engine.Task]*domain.TaskResult
}

var _ engine.Listener = (*recorder)(nil)

func (r *recorder) begin(run *domain.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.run = run
	r.byTask = make(map[*engine.Task]*domain.TaskResult)
}

func (r *recorder) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.run = nil
	r.byTask = nil
}

// resultLocked возвращает запись задачи, создавая её при первом событии.
func (r *recorder) resultLocked(t *engine.Task) *domain.TaskResult {
	if res := r.byTask[t]; res != nil {
		return res
	}
	name := t.FullName()
	if t.Kind().IsFile() {
		name = t.Name()
	}
	res := domain.NewTaskResult(name, t.Kind().String())
	r.byTask[t] = res
	r.run.Tasks = append(r.run.Tasks, res)
	return res
}

func (r *recorder) TaskStarted(t *engine.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run != nil {
		r.resultLocked(t).MarkRunning()
	}
}

func (r *recorder) TaskSkipped(t *engine.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run != nil {
		r.resultLocked(t).MarkSkipped()
	}
}

func (r *recorder) TaskCompleted(t *engine.Task, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run != nil {
		r.resultLocked(t).MarkSucceeded()
	}
}

func (r *recorder) TaskFailed(t *engine.Task, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run != nil {
		r.resultLocked(t).MarkFailed(err.Error())
	}
}
