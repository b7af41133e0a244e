package runner

import (
	"regexp"
	"strings"

	"github.com/shaiso/Forge/internal/engine"
)

// Target — цель запуска: имя задачи и позиционные аргументы.
type Target struct {
	Name string
	Args []string
}

// String возвращает цель в записи командной строки: "name[a,b]".
func (t Target) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	return t.Name + "[" + strings.Join(t.Args, ",") + "]"
}

var envKeyRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseArgs разделяет аргументы на цели и переменные окружения.
//
// Аргумент KEY=value, где KEY — идентификатор, считается переменной;
// всё остальное — цель. "deploy[env=prod]" остаётся целью.
func ParseArgs(args []string) ([]Target, map[string]string) {
	var targets []Target
	env := make(map[string]string)

	for _, arg := range args {
		if key, value, ok := strings.Cut(arg, "="); ok && envKeyRe.MatchString(key) {
			env[key] = value
			continue
		}
		if arg == "" {
			continue
		}
		name, targs := engine.ParseTaskName(arg)
		targets = append(targets, Target{Name: name, Args: targs})
	}
	return targets, env
}

// ParseTarget разбирает одну цель.
func ParseTarget(s string) Target {
	name, args := engine.ParseTaskName(s)
	return Target{Name: name, Args: args}
}
