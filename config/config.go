package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds all configuration for the feed service
type Config struct {
	Telegram TelegramConfig
	Bot      BotConfig
	Database DatabaseConfig
	Parser   ParserConfig
	Kafka    KafkaConfig
	Logging  LoggingConfig
	Service  ServiceConfig
}

// TelegramConfig holds Telegram MTProto configuration used to read channels
type TelegramConfig struct {
	APIID          int
	APIHash        string
	PhoneNumber    string
	SessionDir     string
	PostBaseURL    string
	ConnectTimeout time.Duration
}

// BotConfig holds the conversational bot configuration
type BotConfig struct {
	Token        string
	AdminIDs     []int64
	FeedbackForm string
	PageSize     int
	Workers      int // concurrent update handlers
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // sqlite or postgres
	Path     string // sqlite file path
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ParserConfig holds channel ingestion configuration
type ParserConfig struct {
	Interval     time.Duration
	FetchLimit   int
	ChannelDelay time.Duration
	CycleTimeout time.Duration
}

// KafkaConfig holds Kafka configuration. Publishing is disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers    []string
	TopicPosts string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Name string
	Port string
}

// Result is fx.Out struct for providing config dependencies
type Result struct {
	fx.Out

	Config         *Config
	TelegramConfig *TelegramConfig
	BotConfig      *BotConfig
	DatabaseConfig *DatabaseConfig
	ParserConfig   *ParserConfig
	KafkaConfig    *KafkaConfig
	LoggingConfig  *LoggingConfig
	ServiceConfig  *ServiceConfig
}

// Out returns fx-compatible config result
func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:         cfg,
		TelegramConfig: &cfg.Telegram,
		BotConfig:      &cfg.Bot,
		DatabaseConfig: &cfg.Database,
		ParserConfig:   &cfg.Parser,
		KafkaConfig:    &cfg.Kafka,
		LoggingConfig:  &cfg.Logging,
		ServiceConfig:  &cfg.Service,
	}, nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	apiID, err := strconv.Atoi(getEnv("TELEGRAM_API_ID", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_API_ID: %w", err)
	}

	intervalMinutes, err := strconv.Atoi(getEnv("PARSER_INTERVAL_MINUTES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid PARSER_INTERVAL_MINUTES: %w", err)
	}

	fetchLimit, err := strconv.Atoi(getEnv("PARSER_FETCH_LIMIT", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid PARSER_FETCH_LIMIT: %w", err)
	}

	pageSize, err := strconv.Atoi(getEnv("BOT_PAGE_SIZE", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOT_PAGE_SIZE: %w", err)
	}

	botWorkers, err := strconv.Atoi(getEnv("BOT_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOT_WORKERS: %w", err)
	}

	adminIDs, err := parseIDs(getEnv("ADMIN_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_IDS: %w", err)
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			APIID:          apiID,
			APIHash:        getEnv("TELEGRAM_API_HASH", ""),
			PhoneNumber:    getEnv("TELEGRAM_PHONE", ""),
			SessionDir:     getEnv("TELEGRAM_SESSION_DIR", "./sessions"),
			PostBaseURL:    strings.TrimRight(getEnv("TELEGRAM_POST_BASE_URL", "https://t.me"), "/"),
			ConnectTimeout: getEnvDuration("TELEGRAM_CONNECT_TIMEOUT", 5*time.Minute),
		},
		Bot: BotConfig{
			Token:        getEnv("BOT_TOKEN", ""),
			AdminIDs:     adminIDs,
			FeedbackForm: getEnv("FEEDBACK_FORM", ""),
			PageSize:     pageSize,
			Workers:      botWorkers,
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
			Path:     getEnv("DB_PATH", "db.sqlite"),
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnv("DATABASE_PORT", "5432"),
			User:     getEnv("DATABASE_USER", "feed_user"),
			Password: getEnv("DATABASE_PASSWORD", "feed_pass"),
			DBName:   getEnv("DATABASE_NAME", "feed_db"),
			SSLMode:  getEnv("DATABASE_SSLMODE", "disable"),
		},
		Parser: ParserConfig{
			Interval:     time.Duration(intervalMinutes) * time.Minute,
			FetchLimit:   fetchLimit,
			ChannelDelay: getEnvDuration("PARSER_CHANNEL_DELAY", 2*time.Second),
			CycleTimeout: getEnvDuration("PARSER_CYCLE_TIMEOUT", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(getEnv("KAFKA_BROKERS", "")),
			TopicPosts: getEnv("KAFKA_TOPIC_POSTS", "posts.created"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Service: ServiceConfig{
			Name: getEnv("SERVICE_NAME", "feed-service"),
			Port: getEnv("SERVICE_PORT", "8085"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.APIID == 0 {
		return fmt.Errorf("TELEGRAM_API_ID is required")
	}

	if c.Telegram.APIHash == "" {
		return fmt.Errorf("TELEGRAM_API_HASH is required")
	}

	if c.Telegram.PhoneNumber == "" {
		return fmt.Errorf("TELEGRAM_PHONE is required")
	}

	if c.Bot.Token == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}

	if c.Bot.PageSize <= 0 {
		return fmt.Errorf("BOT_PAGE_SIZE must be positive")
	}

	if c.Bot.Workers <= 0 {
		return fmt.Errorf("BOT_WORKERS must be positive")
	}

	if c.Parser.Interval <= 0 {
		return fmt.Errorf("PARSER_INTERVAL_MINUTES must be positive")
	}

	if c.Parser.FetchLimit <= 0 {
		return fmt.Errorf("PARSER_FETCH_LIMIT must be positive")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for sqlite driver")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("DATABASE_HOST, DATABASE_USER and DATABASE_NAME are required for postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER: %s", c.Database.Driver)
	}

	return nil
}

// GetDSN returns database connection string for the configured driver
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
		)
	}
	// Foreign keys are off by default in sqlite
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.Path)
}

// IsAdmin reports whether userID is listed in ADMIN_IDS
func (c *BotConfig) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvDuration gets environment variable as duration with default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseIDs(value string) ([]int64, error) {
	var ids []int64
	for _, item := range splitList(value) {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
