package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// StepTypeMkdir — тип шага создания каталога.
	StepTypeMkdir = "mkdir"

	configPath = "path"
)

// MkdirStep создаёт каталог вместе с родителями.
//
// Конфигурация:
//
//	{"path": "build/out"}   // относительно Request.Dir
type MkdirStep struct{}

// NewMkdirStep создаёт новый MkdirStep.
func NewMkdirStep() *MkdirStep {
	return &MkdirStep{}
}

// Type возвращает тип шага.
func (s *MkdirStep) Type() string {
	return StepTypeMkdir
}

// Execute создаёт каталог.
func (s *MkdirStep) Execute(_ context.Context, req *Request) (*Response, error) {
	path := req.Config.String(configPath)
	if path == "" {
		return nil, fmt.Errorf("%w: %s: path is required", ErrInvalidConfig, StepTypeMkdir)
	}

	path = resolveDir(req.Dir, path)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", path, err)
	}

	return respond(map[string]any{"path": path}), nil
}

// resolveDir приводит относительный путь к базовому каталогу.
func resolveDir(base, path string) string {
	switch {
	case path == "":
		return base
	case filepath.IsAbs(path) || base == "":
		return path
	default:
		return filepath.Join(base, path)
	}
}
