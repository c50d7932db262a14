package config

import (
	"fmt"     // Error wrapping
	"strings" // Driver normalization
	"time"    // Worker intervals

	"github.com/caarlos0/env/v11" // Typed environment parsing
	"github.com/joho/godotenv"    // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort  string `env:"APP_PORT" envDefault:"8080"`  // Application port
	IsProd   bool   `env:"IS_PROD" envDefault:"false"`  // Is production environment
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"` // logrus level name

	DBDriver    string `env:"DB_DRIVER" envDefault:"mysql"` // mysql or postgres
	DBUser      string `env:"DB_USER"`                      // Database user
	DBPassword  string `env:"DB_PASSWORD"`                  // Database password
	DBHost      string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort      string `env:"DB_PORT"`      // Defaults per driver when empty
	DBName      string `env:"DB_NAME"`      // Database name
	DatabaseURL string `env:"DATABASE_URL"` // Full DSN, overrides the DB_* parts

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"` // JWT secret key
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`     // Token lifetime

	RedisAddr       string        `env:"REDIS_ADDR"`                        // Empty disables Redis
	RedisPass       string        `env:"REDIS_PASS"`                        // Redis password
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`           // Redis database number
	MembersCacheTTL time.Duration `env:"MEMBERS_CACHE_TTL" envDefault:"5m"` // Group member cache lifetime
	NotifyQueueKey  string        `env:"NOTIFY_QUEUE_KEY" envDefault:"group_fund:notifications"`

	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","` // Empty disables event publishing
	KafkaTopicPrefix string   `env:"KAFKA_TOPIC_PREFIX" envDefault:"group_fund."`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"` // Empty disables Telegram delivery

	PayoutEndpoint string        `env:"PAYOUT_ENDPOINT"` // Empty skips settlement
	PayoutTimeout  time.Duration `env:"PAYOUT_TIMEOUT" envDefault:"10s"`

	PayoutInterval       time.Duration `env:"PAYOUT_INTERVAL" envDefault:"1m"`
	SettlementInterval   time.Duration `env:"SETTLEMENT_INTERVAL" envDefault:"1m"`
	ReconcileInterval    time.Duration `env:"RECONCILE_INTERVAL" envDefault:"5m"`
	ReconcileMaxAttempts int           `env:"RECONCILE_MAX_ATTEMPTS" envDefault:"5"`
	WorkerBatchSize      int           `env:"WORKER_BATCH_SIZE" envDefault:"50"`
}

// LoadConfig loads .env if present, then parses the environment
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch cfg.DBDriver {
	case "mysql", "postgres":
	default:
		return nil, fmt.Errorf("parse config: unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.ReconcileMaxAttempts <= 0 {
		return nil, fmt.Errorf("parse config: RECONCILE_MAX_ATTEMPTS must be positive")
	}
	return cfg, nil
}

// DSN builds the connection string for the configured driver
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	port := c.DBPort
	if c.DBDriver == "postgres" {
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, port)
	}
	if port == "" {
		port = "3306"
	}
	// Data Source Name for MySQL
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?parseTime=true&loc=UTC"
}

// RedisEnabled reports whether a Redis address is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
