package taskfile

import "errors"

// Ошибки загрузки Forgefile.
var (
	// ErrNotFound — Forgefile не найден.
	ErrNotFound = errors.New("forgefile not found")

	// ErrEmptyForgefile — Forgefile пуст.
	ErrEmptyForgefile = errors.New("forgefile is empty")

	// ErrParse — YAML не разобран.
	ErrParse = errors.New("forgefile parse failed")
)

// Ошибки валидации Forgefile.
var (
	// ErrEmptyName — задача, правило или namespace без имени.
	ErrEmptyName = errors.New("empty name")

	// ErrInvalidName — имя содержит недопустимые символы.
	ErrInvalidName = errors.New("invalid name")

	// ErrDuplicateName — имя встречается дважды в одном namespace.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrInvalidStep — у шага не задан ровно один тип.
	ErrInvalidStep = errors.New("step must define exactly one of shell, delay, delay_ms, http, mkdir, invoke")

	// ErrInvalidRule — некорректное определение правила.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrInvalidConcurrency — concurrency меньше нуля.
	ErrInvalidConcurrency = errors.New("concurrency must be >= 1")

	// ErrUnknownDefault — задача по умолчанию не определена.
	ErrUnknownDefault = errors.New("default task is not defined")
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Task    string // полное имя задачи/правила, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Task != "" {
		return e.Task + ": " + e.Field + ": " + e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(task, field, message string, err error) *ValidationError {
	return &ValidationError{
		Task:    task,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
