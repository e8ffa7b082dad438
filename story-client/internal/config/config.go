package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"story-studio/shared/logger"
)

// Драйверы хранилища коллекции.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config - настройки storyctl. Источники по возрастанию приоритета: значения по умолчанию,
// YAML-файл (--config), переменные окружения (.env подхватывается автоматически).
type Config struct {
	Env    string       `yaml:"env" env:"STORYCTL_ENV" env-default:"development"`
	Log    LogConfig    `yaml:"log"`
	API    APIConfig    `yaml:"api"`
	Store  StoreConfig  `yaml:"store"`
	Redis  RedisConfig  `yaml:"redis"`
	Player PlayerConfig `yaml:"player"`
	Tasks  TasksConfig  `yaml:"tasks"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" env-default:"warn"`
	Encoding string `yaml:"encoding" env:"LOG_ENCODING" env-default:"console"`
	Output   string `yaml:"output" env:"LOG_OUTPUT" env-default:"stderr"`
}

// APIConfig - адрес story-service.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"STORY_API_BASE_URL" env-default:"http://localhost:8080"`
	Timeout time.Duration `yaml:"timeout" env:"STORY_API_TIMEOUT" env-default:"90s"`
}

type StoreConfig struct {
	Driver      string        `yaml:"driver" env:"STORE_DRIVER" env-default:"file"`
	Dir         string        `yaml:"dir" env:"STORE_DIR"`
	Namespace   string        `yaml:"namespace" env:"STORE_NAMESPACE" env-default:"stories"`
	SaveTimeout time.Duration `yaml:"save_timeout" env:"STORE_SAVE_TIMEOUT" env-default:"5s"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
}

// PlayerConfig - внешняя команда проигрывания; путь к файлу добавляется последним аргументом.
type PlayerConfig struct {
	Command string   `yaml:"command" env:"PLAYER_COMMAND" env-default:"ffplay"`
	Args    []string `yaml:"args" env:"PLAYER_ARGS" env-default:"-nodisp,-autoexit,-loglevel,quiet"`
}

type TasksConfig struct {
	Max int `yaml:"max" env:"TASKS_MAX" env-default:"4"`
}

// Load читает конфигурацию. Пустой path - только окружение.
func Load(path string) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.Store.Dir == "" {
		cfg.Store.Dir = defaultStoreDir()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoggerConfig переводит настройки в shared/logger.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, Encoding: c.Log.Encoding, OutputPath: c.Log.Output}
}

func (c *Config) validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api base url is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api timeout must be positive"))
	}
	if c.Tasks.Max <= 0 {
		errs = append(errs, errors.New("tasks.max must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func defaultStoreDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "story-studio")
	}
	return ".story-studio"
}
