package steps

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Registry сопоставляет тип шага с реализацией.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
}

// NewRegistry создаёт реестр с шагами steps.
func NewRegistry(steps ...Step) *Registry {
	r := &Registry{steps: make(map[string]Step, len(steps))}
	for _, s := range steps {
		r.Register(s)
	}
	return r
}

// DefaultRegistry — shell, delay, http, mkdir.
func DefaultRegistry() *Registry {
	return NewRegistry(NewShellStep(), NewDelayStep(), NewHTTPStep(), NewMkdirStep())
}

// Register добавляет шаг, заменяя шаг того же типа.
func (r *Registry) Register(s Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[s.Type()] = s
}

func (r *Registry) Get(stepType string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.steps[stepType]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepType)
}

func (r *Registry) Has(stepType string) bool {
	_, err := r.Get(stepType)
	return err == nil
}

// Types возвращает типы шагов по алфавиту.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var types []string
	for t := range r.steps {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Run находит шаг и выполняет его с req.
func (r *Registry) Run(ctx context.Context, stepType string, req *Request) (*Response, error) {
	s, err := r.Get(stepType)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, req)
}
