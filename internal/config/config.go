package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Rabbit   RabbitConfig   `mapstructure:"rabbitmq"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Mail     MailConfig     `mapstructure:"mail"`
	ReadLink ReadLinkConfig `mapstructure:"read_link"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	Env          string        `mapstructure:"env"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MigrationsURL   string        `mapstructure:"migrations_url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RabbitConfig struct {
	URL        string `mapstructure:"url"`
	DrainQueue string `mapstructure:"drain_queue"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	EventsTopic string   `mapstructure:"events_topic"`
	Enabled     bool     `mapstructure:"enabled"`
}

type MailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	FromAddress  string `mapstructure:"from_address"`
	Driver       string `mapstructure:"driver"` // "resend" or "log"
}

type ReadLinkConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	SigningKey string        `mapstructure:"signing_key"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type WorkerConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

type TracingConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type SecretsConfig struct {
	// SecretID names an AWS Secrets Manager secret holding a JSON object
	// with mail credentials. Empty disables the lookup.
	SecretID string `mapstructure:"secret_id"`
	Region   string `mapstructure:"region"`
}

// Load reads config/config.yaml (or the file named by FLEETNOTIFY_CONFIG)
// and environment overrides prefixed with FLEETNOTIFY_.
func Load() (*viper.Viper, error) {
	v := viper.New()

	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("FLEETNOTIFY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return v, nil
}

// Parse unmarshals the viper instance into a Config and fills defaults.
func Parse(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = time.Hour
	}
	if c.Database.QueryTimeout == 0 {
		c.Database.QueryTimeout = 5 * time.Second
	}
	if c.Rabbit.DrainQueue == "" {
		c.Rabbit.DrainQueue = "email.dispatch"
	}
	if c.Kafka.EventsTopic == "" {
		c.Kafka.EventsTopic = "notification.events"
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 20
	}
	if c.Worker.PollInterval == 0 {
		c.Worker.PollInterval = time.Minute
	}
	if c.Worker.MaxAttempts == 0 {
		c.Worker.MaxAttempts = 3
	}
	if c.Worker.IdempotencyTTL == 0 {
		c.Worker.IdempotencyTTL = 24 * time.Hour
	}
	if c.ReadLink.TTL == 0 {
		c.ReadLink.TTL = 30 * 24 * time.Hour
	}
	return &c, nil
}
