package engine

import (
	"fmt"
	"regexp"
	"strings"
)

// maxRuleDepth — максимальная глубина цепочки правил (a.o ← a.c ← a.y ...).
const maxRuleDepth = 16

// RuleDef — определение правила.
//
// Ровно одно из Pattern / Regexp задаёт цель; Source или SourceFunc —
// исходный файл. SourceFunc получает имя цели без namespace.
type RuleDef struct {
	Pattern    string
	Regexp     *regexp.Regexp
	Source     string
	SourceFunc func(name string) string

	// Prereqs — дополнительные статические пререквизиты.
	Prereqs []string

	Action  Action
	Options []TaskOption
	Desc    string
}

// Rule — шаблон, материализующий файловые задачи по требованию.
type Rule struct {
	ns         *Namespace
	pattern    pattern
	source     string
	sourceFunc func(string) string
	prereqs    []string
	action     Action
	opts       taskOptions
	desc       string
}

func newRule(ns *Namespace, def RuleDef) (*Rule, error) {
	var p pattern
	switch {
	case def.Pattern != "" && def.Regexp != nil:
		return nil, fmt.Errorf("%w: both pattern and regexp set", ErrInvalidPattern)
	case def.Regexp != nil:
		p = regexpPattern(def.Regexp)
	default:
		var err error
		if p, err = parsePattern(def.Pattern); err != nil {
			return nil, err
		}
	}

	if def.Source == "" && def.SourceFunc == nil {
		return nil, fmt.Errorf("%w: %s: no source", ErrInvalidPattern, p)
	}
	if strings.Count(def.Source, Wildcard) > 1 {
		return nil, fmt.Errorf("%w: source %q must contain at most one %q", ErrInvalidPattern, def.Source, Wildcard)
	}

	var o taskOptions
	for _, opt := range def.Options {
		opt(&o)
	}

	return &Rule{
		ns:         ns,
		pattern:    p,
		source:     def.Source,
		sourceFunc: def.SourceFunc,
		prereqs:    append([]string(nil), def.Prereqs...),
		action:     def.Action,
		opts:       o,
		desc:       def.Desc,
	}, nil
}

// Pattern возвращает запись шаблона цели.
func (r *Rule) Pattern() string { return r.pattern.String() }

// Namespace возвращает namespace правила.
func (r *Rule) Namespace() *Namespace { return r.ns }

// Match проверяет имя цели (без namespace).
func (r *Rule) Match(name string) bool { return r.pattern.match(name) }

// SourceFor вычисляет имя исходного файла для цели.
func (r *Rule) SourceFor(name string) (string, error) {
	if r.sourceFunc != nil {
		src := r.sourceFunc(name)
		if src == "" {
			return "", fmt.Errorf("%w: %s: empty source for %q", ErrInvalidPattern, r.pattern, name)
		}
		return src, nil
	}
	return r.pattern.source(name, r.source)
}

// attemptRuleLocked ищет правило для name и материализует файловую задачу.
//
// Возвращает nil без ошибки, если правило не найдено, глубина
// превышена или исходный файл не может быть получен.
func (e *Engine) attemptRuleLocked(ns *Namespace, name string, level int) (*Task, error) {
	if level > maxRuleDepth {
		return nil, nil
	}

	r := ns.MatchRule(name)
	if r == nil {
		return nil, nil
	}

	_, base := splitName(name)
	if t := r.ns.tasks[base]; t != nil {
		return t, nil
	}

	src, err := r.SourceFor(base)
	if err != nil {
		return nil, err
	}

	ok, err := e.satisfiableLocked(r.ns, src, level)
	if err != nil || !ok {
		return nil, err
	}

	return e.createRuleTaskLocked(r, base, src), nil
}

// satisfiableLocked сообщает, может ли пререквизит name быть получен:
// это известная задача, существующий файл или цель другого правила.
func (e *Engine) satisfiableLocked(ns *Namespace, name string, level int) (bool, error) {
	if e.resolveLocked(ns, name) != nil {
		return true, nil
	}
	if e.fileExists(name) {
		return true, nil
	}
	t, err := e.attemptRuleLocked(ns, name, level+1)
	return t != nil, err
}

// createRuleTaskLocked регистрирует файловую задачу в namespace правила.
// Исходный файл становится первым пререквизитом.
func (e *Engine) createRuleTaskLocked(r *Rule, name, src string) *Task {
	prereqs := append([]string{src}, r.prereqs...)
	t := e.defineLocked(r.ns, KindFile, name, prereqs, r.action, r.opts)
	t.source = src
	if t.description == "" {
		t.description = r.desc
	}

	e.logger.Debug("rule materialized",
		"rule", r.pattern.String(),
		"task", t.FullName(),
		"source", src,
	)
	return t
}
