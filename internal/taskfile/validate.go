package taskfile

import (
	"fmt"
	"regexp"
	"strings"
)

// Validate проверяет Forgefile: имена, шаги, правила и задачу по умолчанию.
func Validate(f *Forgefile) error {
	if err := validateScope(&f.Scope, ""); err != nil {
		return err
	}

	if f.Default != "" && !f.defines(f.Default) {
		return NewValidationError("", "default",
			fmt.Sprintf("%q is not defined", f.Default), ErrUnknownDefault)
	}
	return nil
}

func validateScope(s *Scope, prefix string) error {
	seen := make(map[string]string)

	check := func(kind string, defs []TaskDef) error {
		for i, def := range defs {
			full := qualify(prefix, def.Name)
			if err := ValidateTask(kind, def, full); err != nil {
				return err
			}
			if other, ok := seen[def.Name]; ok {
				return NewValidationError(full, fmt.Sprintf("%s[%d].name", kind, i),
					"already defined in "+other, ErrDuplicateName)
			}
			seen[def.Name] = kind
		}
		return nil
	}

	if err := check("tasks", s.Tasks); err != nil {
		return err
	}
	if err := check("files", s.Files); err != nil {
		return err
	}
	if err := check("directories", s.Directories); err != nil {
		return err
	}

	for i, r := range s.Rules {
		if err := ValidateRule(r, qualify(prefix, r.Key()), i); err != nil {
			return err
		}
	}

	namespaces := make(map[string]bool)
	for i, ns := range s.Namespaces {
		field := fmt.Sprintf("namespaces[%d].name", i)
		if strings.TrimSpace(ns.Name) == "" {
			return NewValidationError(prefix, field, "namespace name is required", ErrEmptyName)
		}
		if strings.Contains(ns.Name, ":") {
			return NewValidationError(prefix, field,
				fmt.Sprintf("%q must not contain ':'", ns.Name), ErrInvalidName)
		}
		if namespaces[ns.Name] {
			return NewValidationError(prefix, field,
				fmt.Sprintf("namespace %q already defined", ns.Name), ErrDuplicateName)
		}
		namespaces[ns.Name] = true

		if err := validateScope(&ns.Scope, qualify(prefix, ns.Name)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTask проверяет определение задачи, файла или каталога.
func ValidateTask(kind string, def TaskDef, full string) error {
	if strings.TrimSpace(def.Name) == "" {
		return NewValidationError(full, kind+".name", "name is required", ErrEmptyName)
	}
	if kind == "tasks" && strings.ContainsAny(def.Name, ":[]") {
		return NewValidationError(full, "name",
			"task names cannot contain ':' or brackets", ErrInvalidName)
	}
	if def.Concurrency < 0 {
		return NewValidationError(full, "concurrency",
			fmt.Sprintf("got %d", def.Concurrency), ErrInvalidConcurrency)
	}
	return validateSteps(def.Steps, full)
}

// ValidateRule проверяет определение правила.
func ValidateRule(r RuleDef, full string, index int) error {
	field := fmt.Sprintf("rules[%d]", index)

	switch {
	case r.Pattern == "" && r.Regexp == "":
		return NewValidationError(full, field, "pattern or regexp is required", ErrInvalidRule)
	case r.Pattern != "" && r.Regexp != "":
		return NewValidationError(full, field, "pattern and regexp are mutually exclusive", ErrInvalidRule)
	case r.Source == "":
		return NewValidationError(full, field+".source", "source is required", ErrInvalidRule)
	case strings.Count(r.Source, "%") > 1:
		return NewValidationError(full, field+".source", "at most one '%' is allowed", ErrInvalidRule)
	case strings.Count(r.Pattern, "%") > 1:
		return NewValidationError(full, field+".pattern", "at most one '%' is allowed", ErrInvalidRule)
	}

	if r.Regexp != "" {
		if _, err := regexp.Compile(r.Regexp); err != nil {
			return NewValidationError(full, field+".regexp", err.Error(), ErrInvalidRule)
		}
	}
	if r.Concurrency < 0 {
		return NewValidationError(full, field+".concurrency",
			fmt.Sprintf("got %d", r.Concurrency), ErrInvalidConcurrency)
	}
	return validateSteps(r.Steps, full)
}

func validateSteps(steps []StepDef, full string) error {
	for i, s := range steps {
		if s.Type() == "" {
			return NewValidationError(full, fmt.Sprintf("steps[%d]", i),
				fmt.Sprintf("got %v", s.Types()), ErrInvalidStep)
		}
		if s.HTTP != nil {
			if url, _ := s.HTTP["url"].(string); url == "" {
				return NewValidationError(full, fmt.Sprintf("steps[%d].http.url", i),
					"url is required", ErrInvalidStep)
			}
		}
	}
	return nil
}

// defines сообщает, определена ли задача с полным именем name.
func (f *Forgefile) defines(name string) bool {
	name, _ = splitArgs(name)
	parts := strings.Split(name, ":")
	scope := &f.Scope

	for _, ns := range parts[:len(parts)-1] {
		var next *Scope
		for i := range scope.Namespaces {
			if scope.Namespaces[i].Name == ns {
				next = &scope.Namespaces[i].Scope
				break
			}
		}
		if next == nil {
			return false
		}
		scope = next
	}

	base := parts[len(parts)-1]
	for _, defs := range [][]TaskDef{scope.Tasks, scope.Files, scope.Directories} {
		for _, d := range defs {
			if d.Name == base {
				return true
			}
		}
	}
	return false
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + ":" + name
}

// splitArgs отделяет "[a,b]" от имени задачи.
func splitArgs(s string) (string, string) {
	if i := strings.IndexByte(s, '['); i >= 0 && strings.HasSuffix(s, "]") {
		return s[:i], s[i+1 : len(s)-1]
	}
	return s, ""
}
