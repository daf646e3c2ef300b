package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var (
	ErrEmptyBotToken   = errors.New("telegram bot token is required")
	ErrEmptyDBPassword = errors.New("database password is required")
)

type Config struct {
	App       AppConfig       `yaml:"app" env:"APP"`
	Database  DatabaseConfig  `yaml:"database" env:"DB"`
	Bot       BotConfig       `yaml:"bot" env:"BOT"`
	Jokes     JokesConfig     `yaml:"jokes" env:"JOKES"`
	Broadcast BroadcastConfig `yaml:"broadcast" env:"BROADCAST"`
	Sender    SenderConfig    `yaml:"sender" env:"SENDER"`
	NATS      NATSConfig      `yaml:"nats" env:"NATS"`
	Health    HealthConfig    `yaml:"health" env:"HEALTH"`
}

type AppConfig struct {
	Name        string `yaml:"name" env:"NAME" env-default:"jester-bot"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"production"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

type DatabaseConfig struct {
	Host           string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PORT" env-default:"5432"`
	User           string `yaml:"user" env:"USER" env-default:"jesterbot"`
	Password       string `yaml:"password" env:"PASSWORD"`
	Name           string `yaml:"name" env:"NAME" env-default:"jesterbot"`
	MaxConnections int    `yaml:"max_connections" env:"MAX_CONNECTIONS" env-default:"25"`
	MinConnections int    `yaml:"min_connections" env:"MIN_CONNECTIONS" env-default:"5"`
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

type BotConfig struct {
	Token        string   `yaml:"token" env:"TOKEN"`
	ParseMode    string   `yaml:"parse_mode" env:"PARSE_MODE" env-default:"Markdown"`
	AdminIDs     []int64  `yaml:"admin_ids" env:"ADMIN_IDS" env-separator:","`
	TriggerWords []string `yaml:"trigger_words" env:"TRIGGER_WORDS" env-separator:"," env-default:"joke,tell me a joke"`
}

func (b BotConfig) IsAdmin(userID int64) bool {
	for _, id := range b.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type JokesConfig struct {
	MinLength int `yaml:"min_length" env:"MIN_LENGTH" env-default:"10"`
}

type BroadcastConfig struct {
	Enabled       bool          `yaml:"enabled" env:"ENABLED" env-default:"true"`
	UserInterval  time.Duration `yaml:"user_interval" env:"USER_INTERVAL" env-default:"12h"`
	GroupInterval time.Duration `yaml:"group_interval" env:"GROUP_INTERVAL" env-default:"12h"`
	ErrorBackoff  time.Duration `yaml:"error_backoff" env:"ERROR_BACKOFF" env-default:"10s"`
	Workers       int           `yaml:"workers" env:"WORKERS" env-default:"10"`
}

type SenderConfig struct {
	MaxAttempts int           `yaml:"max_attempts" env:"MAX_ATTEMPTS" env-default:"3"`
	RetryDelay  time.Duration `yaml:"retry_delay" env:"RETRY_DELAY" env-default:"2s"`
}

type NATSConfig struct {
	URL        string `yaml:"url" env:"URL"`
	StreamName string `yaml:"stream_name" env:"STREAM_NAME" env-default:"JESTER"`
}

type HealthConfig struct {
	Port     int    `yaml:"port" env:"PORT" env-default:"8080"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT" env-default:"/healthz"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.prod.yaml"
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from %s: %w", configPath, err)
	}

	cleanenv.ReadEnv(&cfg)

	if cfg.Bot.Token == "" {
		return nil, ErrEmptyBotToken
	}

	if cfg.Database.Password == "" {
		return nil, ErrEmptyDBPassword
	}

	return &cfg, nil
}
