// Package config — конфигурация forge.
//
// Источники в порядке приоритета: флаги командной строки (через
// BindPFlag), переменные окружения FORGE_*, файл .forge.yaml в
// рабочем каталоге, значения по умолчанию.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix — префикс переменных окружения: FORGE_ALWAYS_MAKE, FORGE_LOG_LEVEL.
const EnvPrefix = "FORGE"

// FileName — имя необязательного файла конфигурации (без расширения).
const FileName = ".forge"

// Config — итоговая конфигурация запуска.
type Config struct {
	// Forgefile — путь к Forgefile ("" — поиск от Directory вверх).
	Forgefile string `mapstructure:"forgefile"`

	// Directory — рабочий каталог ("" — текущий).
	Directory string `mapstructure:"directory"`

	// AlwaysMake — выполнять файловые задачи независимо от mtime.
	AlwaysMake bool `mapstructure:"always_make"`

	// Quiet — не печатать шаги и логи ниже ERROR.
	Quiet bool `mapstructure:"quiet"`

	// Trace — полная диагностика ошибок.
	Trace bool `mapstructure:"trace"`

	// Timeout — таймаут одной задачи (0 — без ограничения).
	Timeout time.Duration `mapstructure:"timeout"`

	// Watch — перезапуск целей при изменении файлов.
	Watch bool `mapstructure:"watch"`

	// WatchDebounce — окно объединения событий файловой системы.
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`

	// Schedule — cron-выражение для повторных запусков.
	Schedule string `mapstructure:"schedule"`

	// MetricsAddr — адрес /metrics в режимах watch/schedule ("" — выключено).
	MetricsAddr string `mapstructure:"metrics_addr"`

	// JSON — вывод списков и итогов run в JSON.
	JSON bool `mapstructure:"json"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig — параметры логирования.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		WatchDebounce: 200 * time.Millisecond,
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// SetDefaults регистрирует значения по умолчанию и окружение FORGE_*.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("forgefile", defaults.Forgefile)
	v.SetDefault("directory", defaults.Directory)
	v.SetDefault("always_make", defaults.AlwaysMake)
	v.SetDefault("quiet", defaults.Quiet)
	v.SetDefault("trace", defaults.Trace)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("watch", defaults.Watch)
	v.SetDefault("watch_debounce", defaults.WatchDebounce)
	v.SetDefault("schedule", defaults.Schedule)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)
	v.SetDefault("json", defaults.JSON)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// ReadFile читает .forge.yaml из dir, если он есть.
func ReadFile(v *viper.Viper, dir string) error {
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load читает конфигурацию из viper и проверяет её.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}
