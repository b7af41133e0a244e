package taskfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultNames — имена, под которыми ищется Forgefile.
var DefaultNames = []string{"Forgefile.yaml", "Forgefile.yml", "forgefile.yaml", "forgefile.yml"}

// Find ищет Forgefile в dir и выше по дереву каталогов.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		for _, name := range DefaultNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: looked for %v", ErrNotFound, DefaultNames)
		}
		dir = parent
	}
}

// Load читает и проверяет Forgefile.
func Load(path string) (*Forgefile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse разбирает Forgefile из YAML. Неизвестные поля — ошибка.
func Parse(data []byte) (*Forgefile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Forgefile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyForgefile
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// DefaultTask возвращает задачу по умолчанию.
func (f *Forgefile) DefaultTask() string {
	if f.Default != "" {
		return f.Default
	}
	return "default"
}
