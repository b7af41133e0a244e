package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shaiso/Forge/internal/scheduler"
)

// ValidationError — одна ошибка конфигурации.
type ValidationError struct {
	Field   string // ключ конфигурации: "log.level"
	Value   any
	Message string
}

// Error реализует интерфейс error.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors — набор ошибок конфигурации.
type ValidationErrors []ValidationError

// Error реализует интерфейс error.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels возвращает допустимые уровни логирования.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats возвращает допустимые форматы логов.
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate проверяет конфигурацию и возвращает все найденные ошибки.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: "must be one of: " + strings.Join(ValidLogLevels(), ", "),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Log.Format)) {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Value:   c.Log.Format,
			Message: "must be one of: " + strings.Join(ValidLogFormats(), ", "),
		})
	}

	if c.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "timeout",
			Value:   c.Timeout,
			Message: "must be non-negative",
		})
	}
	if c.Watch && c.WatchDebounce <= 0 {
		errs = append(errs, ValidationError{
			Field:   "watch_debounce",
			Value:   c.WatchDebounce,
			Message: "must be positive",
		})
	}

	if c.Schedule != "" {
		if err := scheduler.ValidateCronExpr(c.Schedule); err != nil {
			errs = append(errs, ValidationError{
				Field:   "schedule",
				Value:   c.Schedule,
				Message: err.Error(),
			})
		}
		if c.Watch {
			errs = append(errs, ValidationError{
				Field:   "schedule",
				Value:   c.Schedule,
				Message: "cannot be combined with watch",
			})
		}
	}

	return errs
}

// LongRunning сообщает, работает ли forge до сигнала (watch или schedule).
func (c *Config) LongRunning() bool {
	return c.Watch || c.Schedule != ""
}
