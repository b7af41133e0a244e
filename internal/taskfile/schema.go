package taskfile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Forgefile — корень файла описания задач.
//
//	default: build
//	env: {GOFLAGS: -trimpath}
//	tasks: [...]
//	files: [...]
//	directories: [out]
//	rules: [...]
//	namespaces: [...]
type Forgefile struct {
	// Default — задача, выполняемая без явной цели ("default", если пусто).
	Default string `yaml:"default"`

	// Env — переменные окружения для шагов и шаблонов.
	Env map[string]string `yaml:"env"`

	Scope `yaml:",inline"`
}

// Scope — содержимое namespace (корневого или вложенного).
type Scope struct {
	Tasks       []TaskDef      `yaml:"tasks"`
	Files       []TaskDef      `yaml:"files"`
	Directories []TaskDef      `yaml:"directories"`
	Rules       []RuleDef      `yaml:"rules"`
	Namespaces  []NamespaceDef `yaml:"namespaces"`
}

// NamespaceDef — вложенный namespace.
type NamespaceDef struct {
	Name  string `yaml:"name"`
	Scope `yaml:",inline"`
}

// TaskDef — определение задачи, файла или каталога.
//
// В списках допускается краткая форма — просто имя:
//
//	directories: [out, out/bin]
type TaskDef struct {
	Name        string    `yaml:"name"`
	Desc        string    `yaml:"desc"`
	Deps        []string  `yaml:"deps"`
	Concurrency int       `yaml:"concurrency"`
	Async       bool      `yaml:"async"`
	Steps       []StepDef `yaml:"steps"`
}

var taskDefFields = map[string]bool{
	"name": true, "desc": true, "deps": true, "concurrency": true, "async": true, "steps": true,
}

// UnmarshalYAML поддерживает краткую форму (скаляр — имя задачи).
func (d *TaskDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		d.Name = node.Value
		return nil
	}

	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if !taskDefFields[key.Value] {
				return fmt.Errorf("line %d: field %s not found in type taskfile.TaskDef", key.Line, key.Value)
			}
		}
	}

	type plain TaskDef
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = TaskDef(p)
	return nil
}

// RuleDef — определение правила.
type RuleDef struct {
	Pattern     string    `yaml:"pattern"`
	Regexp      string    `yaml:"regexp"`
	Source      string    `yaml:"source"`
	Desc        string    `yaml:"desc"`
	Deps        []string  `yaml:"deps"`
	Concurrency int       `yaml:"concurrency"`
	Steps       []StepDef `yaml:"steps"`
}

// Key возвращает запись шаблона правила для сообщений об ошибках.
func (r RuleDef) Key() string {
	if r.Regexp != "" {
		return "/" + r.Regexp + "/"
	}
	return r.Pattern
}

// Типы шагов Forgefile.
const (
	StepShell  = "shell"
	StepDelay  = "delay"
	StepHTTP   = "http"
	StepMkdir  = "mkdir"
	StepInvoke = "invoke"
)

// StepDef — один шаг action. Задаётся ровно один тип.
type StepDef struct {
	Shell   string            `yaml:"shell,omitempty"`
	Dir     string            `yaml:"dir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Delay   string            `yaml:"delay,omitempty"`
	DelayMs int               `yaml:"delay_ms,omitempty"`
	HTTP    map[string]any    `yaml:"http,omitempty"`
	Mkdir   string            `yaml:"mkdir,omitempty"`

	// Invoke вызывает другую задачу (однократно за запуск).
	Invoke string `yaml:"invoke,omitempty"`

	// IgnoreError — ошибка шага логируется, выполнение продолжается.
	IgnoreError bool `yaml:"ignore_error,omitempty"`
}

// Types возвращает все заданные типы шага.
func (s StepDef) Types() []string {
	var types []string
	if s.Shell != "" {
		types = append(types, StepShell)
	}
	if s.Delay != "" || s.DelayMs > 0 {
		types = append(types, StepDelay)
	}
	if s.HTTP != nil {
		types = append(types, StepHTTP)
	}
	if s.Mkdir != "" {
		types = append(types, StepMkdir)
	}
	if s.Invoke != "" {
		types = append(types, StepInvoke)
	}
	return types
}

// Type возвращает тип шага ("" если задано не ровно одно).
func (s StepDef) Type() string {
	if types := s.Types(); len(types) == 1 {
		return types[0]
	}
	return ""
}

// Config возвращает конфигурацию шага для steps.Registry.
func (s StepDef) Config() map[string]any {
	switch s.Type() {
	case StepShell:
		cfg := map[string]any{"command": s.Shell}
		if s.Dir != "" {
			cfg["dir"] = s.Dir
		}
		if len(s.Env) > 0 {
			env := make(map[string]any, len(s.Env))
			for k, v := range s.Env {
				env[k] = v
			}
			cfg["env"] = env
		}
		return cfg
	case StepDelay:
		if s.Delay != "" {
			return map[string]any{"duration": s.Delay}
		}
		return map[string]any{"duration_ms": s.DelayMs}
	case StepHTTP:
		return s.HTTP
	case StepMkdir:
		return map[string]any{"path": s.Mkdir}
	case StepInvoke:
		return map[string]any{"task": s.Invoke}
	default:
		return nil
	}
}

// String — краткое описание шага для логов.
func (s StepDef) String() string {
	switch s.Type() {
	case StepShell:
		return s.Shell
	case StepDelay:
		if s.Delay != "" {
			return "delay " + s.Delay
		}
		return fmt.Sprintf("delay %dms", s.DelayMs)
	case StepHTTP:
		return fmt.Sprintf("http %v", s.HTTP["url"])
	case StepMkdir:
		return "mkdir " + s.Mkdir
	case StepInvoke:
		return "invoke " + s.Invoke
	default:
		return "<invalid step>"
	}
}
