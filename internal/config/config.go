package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App       App       `env-prefix:"APP_"`
		HTTP      HTTP      `env-prefix:"HTTP_"`
		Database  Database  `env-prefix:"DB_"`
		Cache     Cache     `env-prefix:"REDIS_"`
		Broker    Broker    `env-prefix:"BROKER_"`
		SMTP      SMTP      `env-prefix:"SMTP_"`
		SMS       SMS       `env-prefix:"SMS_"`
		Telegram  Telegram  `env-prefix:"TELEGRAM_"`
		Scheduler Scheduler `env-prefix:"SCHEDULER_"`
		Service   Service   `env-prefix:"SERVICE_"`
		Logger    Logger    `env-prefix:"LOGGER_"`
		Env       string    `env:"ENV" env-default:"local" validate:"oneof=local dev staging prod"`
	}

	App struct {
		Name    string `env:"NAME"    env-default:"gym-notifier" validate:"required"`
		Version string `env:"VERSION" env-default:"dev"          validate:"required"`
	}

	HTTP struct {
		Host              string        `env:"HOST"                env-default:"0.0.0.0"`
		Port              int           `env:"PORT"                env-default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout       time.Duration `env:"READ_TIMEOUT"        env-default:"5s"   validate:"gte=10ms,lte=30s"`
		WriteTimeout      time.Duration `env:"WRITE_TIMEOUT"       env-default:"5s"   validate:"gte=10ms,lte=30s"`
		IdleTimeout       time.Duration `env:"IDLE_TIMEOUT"        env-default:"60s"  validate:"gte=10ms,lte=120s"`
		ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" env-default:"5s"   validate:"gte=10ms,lte=30s"`
		ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"    env-default:"10s"  validate:"gte=10ms,lte=30s"`
	}

	Database struct {
		DSN            string        `env:"DSN" validate:"required"`
		PoolMax        int           `env:"POOL_MAX"         env-default:"10" validate:"min=1,max=100"`
		ConnAttempts   int           `env:"CONN_ATTEMPTS"    env-default:"5"  validate:"min=1,max=20"`
		BaseRetryDelay time.Duration `env:"BASE_RETRY_DELAY" env-default:"1s"`
		MaxRetryDelay  time.Duration `env:"MAX_RETRY_DELAY"  env-default:"10s"`
		MigrationsPath string        `env:"MIGRATIONS_PATH"  env-default:"file://migrations"`
	}

	Cache struct {
		Addr     string        `env:"ADDR" validate:"required"`
		Password string        `env:"PASSWORD"`
		DB       int           `env:"DB"        env-default:"0"`
		StatsTTL time.Duration `env:"STATS_TTL" env-default:"30s" validate:"gte=1s,lte=10m"`
	}

	Broker struct {
		URL            string        `env:"URL" validate:"required"`
		Exchange       string        `env:"EXCHANGE"        env-default:"notifications" validate:"required"`
		ConnectionName string        `env:"CONNECTION_NAME" env-default:"gym-notifier"`
		ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" env-default:"10s"`
	}

	SMTP struct {
		Host     string `env:"HOST" env-default:"localhost"`
		Port     int    `env:"PORT" env-default:"587" validate:"gte=1,lte=65535"`
		Username string `env:"USERNAME"`
		Password string `env:"PASSWORD"`
		From     string `env:"FROM" env-default:"no-reply@gym.local"`
	}

	SMS struct {
		GatewayURL string        `env:"GATEWAY_URL" env-default:"http://localhost:9090/send"`
		APIKey     string        `env:"API_KEY"`
		From       string        `env:"FROM"    env-default:"GYM"`
		Timeout    time.Duration `env:"TIMEOUT" env-default:"5s"`
	}

	Telegram struct {
		Token string `env:"TOKEN"`
	}

	Scheduler struct {
		Interval  time.Duration `env:"INTERVAL"   env-default:"60s" validate:"gte=1s,lte=10m"`
		BatchSize int           `env:"BATCH_SIZE" env-default:"100" validate:"min=1,max=1000"`
	}

	Service struct {
		FanoutWorkers int `env:"FANOUT_WORKERS" env-default:"8"   validate:"min=1,max=64"`
		FanoutBatch   int `env:"FANOUT_BATCH"   env-default:"200" validate:"min=1,max=1000"`
	}

	Logger struct {
		Level string `env:"LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	}
)

// Load reads configuration from a file when CONFIG_PATH is set, from the
// environment otherwise, and validates the result.
func Load() (*Config, error) {
	const op = "config.Load"

	var cfg Config
	var err error

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read config: %w", op, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	v := validator.New()

	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		msgs := make([]string, 0, len(validationErrs))
		for _, ve := range validationErrs {
			msgs = append(msgs, fmt.Sprintf("%s=%v must satisfy '%s'", ve.Field(), ve.Value(), ve.Tag()))
		}
		return fmt.Errorf("config validation: %s", strings.Join(msgs, "; "))
	}

	return fmt.Errorf("config validation: %w", err)
}
