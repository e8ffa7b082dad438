package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"story-studio/shared/utils"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Типы клиентов внешних AI-бэкендов
const (
	AIClientOpenAI = "openai"
	AIClientOllama = "ollama"

	SpeechClientAIML   = "aimlapi"
	SpeechClientOpenAI = "openai"
)

// Config содержит конфигурацию сервиса историй
type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`

	// Генерация текста. Значения по умолчанию совпадают с прежним фронтендом.
	AIClientType  string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIBaseURL     string        `envconfig:"AI_BASE_URL" default:"https://api.aimlapi.com/v1"`
	AIModel       string        `envconfig:"AI_MODEL" default:"deepseek/deepseek-r1"`
	AITimeout     time.Duration `envconfig:"AI_TIMEOUT" default:"90s"`
	AITemperature float64       `envconfig:"AI_TEMPERATURE" default:"0.8"`
	AIMaxTokens   int           `envconfig:"AI_MAX_TOKENS" default:"1000"`
	// Секретное поле БЕЗ envconfig тега
	AIAPIKey string

	// Синтез речи
	SpeechClientType string        `envconfig:"SPEECH_CLIENT_TYPE" default:"aimlapi"`
	SpeechURL        string        `envconfig:"SPEECH_URL" default:"https://api.aimlapi.com/tts"`
	SpeechModel      string        `envconfig:"SPEECH_MODEL" default:"#g1_aura-asteria-en"`
	SpeechEncoding   string        `envconfig:"SPEECH_ENCODING" default:"linear16"`
	SpeechVoice      string        `envconfig:"SPEECH_VOICE" default:"alloy"` // только для openai
	SpeechTimeout    time.Duration `envconfig:"SPEECH_TIMEOUT" default:"60s"`
	NarrationTTL     time.Duration `envconfig:"NARRATION_CACHE_TTL" default:"24h"`

	// Настройки PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"postgres"`
	DBName        string        `envconfig:"DB_NAME" default:"story_studio"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	DBMaxRetries  int           `envconfig:"DB_MAX_RETRIES" default:"20"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Redis: кэш озвучки и лимитер запросов
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string

	// Лимит на дорогие ручки (генерация, озвучка, чат) на один IP
	RateLimit       uint          `envconfig:"RATE_LIMIT" default:"20"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// GetMaskedDSN - DSN для логов, пароль скрыт.
func (c *Config) GetMaskedDSN() string {
	return fmt.Sprintf("postgres://%s:****@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// GetAllowedOrigins разбирает список CORS origin'ов.
func (c *Config) GetAllowedOrigins() []string {
	if strings.TrimSpace(c.CORSAllowedOrigins) == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// Validate проверяет значения, которые envconfig не умеет проверить сам.
func (c *Config) Validate() error {
	switch strings.ToLower(c.AIClientType) {
	case AIClientOpenAI, AIClientOllama:
	default:
		return fmt.Errorf("unknown AI_CLIENT_TYPE %q", c.AIClientType)
	}
	switch strings.ToLower(c.SpeechClientType) {
	case SpeechClientAIML, SpeechClientOpenAI:
	default:
		return fmt.Errorf("unknown SPEECH_CLIENT_TYPE %q", c.SpeechClientType)
	}
	if c.AIMaxTokens <= 0 {
		return fmt.Errorf("AI_MAX_TOKENS must be positive, got %d", c.AIMaxTokens)
	}
	if c.RateLimit == 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT and RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// LoadConfig загружает конфигурацию из .env (если есть), переменных окружения и секретов
func LoadConfig(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if _, err := os.Stat(envFilePath); err == nil {
			if err := godotenv.Load(envFilePath); err != nil {
				log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
			} else {
				log.Printf("Loaded configuration from %s", envFilePath)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	// Ключ нужен всегда: даже с ollama озвучка идет через внешний API
	var loadErr error
	cfg.AIAPIKey, loadErr = utils.ReadSecretOrEnv("ai_api_key", "AI_API_KEY")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.DBPassword, loadErr = utils.ReadSecretOrEnv("db_password", "DB_PASSWORD")
	if loadErr != nil {
		return nil, loadErr
	}

	if redisPass, err := utils.ReadSecretOrEnv("redis_password", "REDIS_PASSWORD"); err == nil {
		cfg.RedisPassword = redisPass
	} else {
		log.Printf("Optional secret 'redis_password' not found: %v. Assuming no password.", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Printf("Configuration loaded: env=%s, ai=%s (%s), speech=%s, db=%s",
		cfg.Env, cfg.AIClientType, cfg.AIModel, cfg.SpeechClientType, cfg.GetMaskedDSN())
	return &cfg, nil
}
