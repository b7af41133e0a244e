package steps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	ErrStepNotFound  = errors.New("step type not found")
	ErrInvalidConfig = errors.New("invalid step config")
	ErrStepCancelled = errors.New("step execution cancelled")
)

// Step — один шаг action задачи.
type Step interface {
	Type() string

	// Execute выполняет шаг. При отмене ctx возвращает ErrStepCancelled.
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Request — входные данные шага.
type Request struct {
	// Task — полное имя задачи.
	Task string

	// Config — отрендеренная конфигурация шага.
	Config Config

	// Dir — базовый каталог для относительных путей.
	Dir string

	// Env — KEY=value поверх os.Environ().
	Env []string

	// nil — вывод отбрасывается.
	Stdout io.Writer
	Stderr io.Writer

	// Timeout ограничивает шаг; 0 — без ограничения.
	Timeout time.Duration
}

// NewRequest создаёт Request для задачи task.
func NewRequest(task string, cfg map[string]any) *Request {
	if cfg == nil {
		cfg = map[string]any{}
	}
	return &Request{Task: task, Config: cfg}
}

func (r *Request) stdout() io.Writer {
	if r.Stdout == nil {
		return io.Discard
	}
	return r.Stdout
}

// Response — итог шага, выводится в логах отладки.
type Response struct {
	Outputs map[string]any
}

func respond(outputs map[string]any) *Response {
	return &Response{Outputs: outputs}
}

// cancelled оборачивает ошибку отменённого контекста.
func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
}

// Config — конфигурация шага после YAML и шаблонов.
//
// YAML отдаёт числа как int, JSON как float64: методы принимают оба.
type Config map[string]any

// String возвращает строку по ключу или "".
func (c Config) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Int возвращает целое по ключу или 0.
func (c Config) Int(key string) int {
	switch n := c[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Bool возвращает флаг по ключу или def, если ключа нет.
func (c Config) Bool(key string, def bool) bool {
	if b, ok := c[key].(bool); ok {
		return b
	}
	return def
}

// StringMap возвращает вложенную map со строковыми значениями.
func (c Config) StringMap(key string) map[string]string {
	switch m := c[key].(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}

// Duration разбирает key как строку time.ParseDuration или keyMs как
// миллисекунды. found=false, если нет ни того, ни другого.
func (c Config) Duration(key, keyMs string) (d time.Duration, found bool, err error) {
	if s := c.String(key); s != "" {
		d, err = time.ParseDuration(s)
		if err != nil || d <= 0 {
			return 0, true, fmt.Errorf("%w: bad duration %q", ErrInvalidConfig, s)
		}
		return d, true, nil
	}
	if ms := c.Int(keyMs); ms > 0 {
		return time.Duration(ms) * time.Millisecond, true, nil
	}
	return 0, false, nil
}
