// Package config loads service settings through viper: an optional .env
// file, overridden by environment variables bound in BindEnv.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	LocksLocal = "local"
	LocksRedis = "redis"

	NotifyLog   = "log"
	NotifyRedis = "redis"
)

var envBindings = map[string]string{
	"database.host":     "DATABASE_HOST",
	"database.port":     "DATABASE_PORT",
	"database.user":     "DATABASE_USER",
	"database.password": "DATABASE_PASSWORD",
	"database.name":     "DATABASE_NAME",
	"database.ssl_mode": "DATABASE_SSL_MODE",
	"database.migrate":  "DATABASE_MIGRATE",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"jwt.secret_key": "JWT_SECRET_KEY",

	"server.port":             "SERVER_PORT",
	"server.allowed_origins":  "SERVER_ALLOWED_ORIGINS",
	"server.shutdown_timeout": "SERVER_SHUTDOWN_TIMEOUT",
	"server.swagger_host":     "SERVER_SWAGGER_HOST",

	"storage.driver":  "STORAGE_DRIVER",
	"locks.driver":    "LOCKS_DRIVER",
	"locks.expiry":    "LOCKS_EXPIRY",
	"notify.driver":   "NOTIFY_DRIVER",
	"notify.queue":    "NOTIFY_QUEUE",
	"kafka.brokers":   "KAFKA_BROKERS",
	"kafka.prefix":    "KAFKA_TOPIC_PREFIX",
	"bank.currency":   "BANK_CURRENCY",
	"bank.bic":        "BANK_BIC",
	"idempotency.ttl": "IDEMPOTENCY_TTL",
}

// BindEnv maps every setting to its environment variable.
func BindEnv() {
	for key, env := range envBindings {
		viper.BindEnv(key, env)
	}
}

// Init reads configFile when present and binds the environment. A missing
// file is reported but the environment and defaults still apply.
func Init(configFile string) error {
	viper.SetConfigFile(configFile)
	viper.AutomaticEnv()
	BindEnv()
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("config file %s not loaded: %w", configFile, err)
	}
	return nil
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	JWTSecret       string
	SwaggerHost     string
}

func LoadServerConfig() *ServerConfig {
	viper.SetDefault("server.port", getEnv("PORT", "8080"))
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)
	viper.SetDefault("server.shutdown_timeout", getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second))
	viper.SetDefault("server.allowed_origins", "https://*,http://*")
	viper.SetDefault("server.swagger_host", "localhost:8080")

	return &ServerConfig{
		Port:            viper.GetString("server.port"),
		ReadTimeout:     viper.GetDuration("server.read_timeout"),
		WriteTimeout:    viper.GetDuration("server.write_timeout"),
		IdleTimeout:     viper.GetDuration("server.idle_timeout"),
		ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
		AllowedOrigins:  splitList(viper.GetString("server.allowed_origins")),
		JWTSecret:       viper.GetString("jwt.secret_key"),
		SwaggerHost:     viper.GetString("server.swagger_host"),
	}
}

// SettlementConfig selects the backing implementation of each settlement
// collaborator.
type SettlementConfig struct {
	StorageDriver     string
	LockDriver        string
	LockExpiry        time.Duration
	NotifyDriver      string
	NotificationQueue string
	KafkaBrokers      []string
	KafkaTopicPrefix  string
	Currency          string
	BankBIC           string
	IdempotencyTTL    time.Duration
}

func LoadSettlementConfig() (*SettlementConfig, error) {
	viper.SetDefault("storage.driver", StoragePostgres)
	viper.SetDefault("locks.driver", LocksLocal)
	viper.SetDefault("locks.expiry", 10*time.Second)
	viper.SetDefault("notify.driver", NotifyLog)
	viper.SetDefault("notify.queue", "notification_queue")
	viper.SetDefault("kafka.brokers", "")
	viper.SetDefault("kafka.prefix", "orgledger.")
	viper.SetDefault("bank.currency", "NGN")
	viper.SetDefault("bank.bic", "RURLNGLA")
	viper.SetDefault("idempotency.ttl", time.Duration(getEnvAsInt("IDEMPOTENCY_TTL_HOURS", 24))*time.Hour)

	cfg := &SettlementConfig{
		StorageDriver:     viper.GetString("storage.driver"),
		LockDriver:        viper.GetString("locks.driver"),
		LockExpiry:        viper.GetDuration("locks.expiry"),
		NotifyDriver:      viper.GetString("notify.driver"),
		NotificationQueue: viper.GetString("notify.queue"),
		KafkaBrokers:      splitList(viper.GetString("kafka.brokers")),
		KafkaTopicPrefix:  viper.GetString("kafka.prefix"),
		Currency:          viper.GetString("bank.currency"),
		BankBIC:           viper.GetString("bank.bic"),
		IdempotencyTTL:    viper.GetDuration("idempotency.ttl"),
	}

	switch cfg.StorageDriver {
	case StoragePostgres, StorageMemory:
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	switch cfg.LockDriver {
	case LocksLocal, LocksRedis:
	default:
		return nil, fmt.Errorf("unknown locks driver %q", cfg.LockDriver)
	}
	switch cfg.NotifyDriver {
	case NotifyLog, NotifyRedis:
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.NotifyDriver)
	}
	if len(cfg.Currency) != 3 {
		return nil, fmt.Errorf("bank currency %q is not an ISO 4217 code", cfg.Currency)
	}
	return cfg, nil
}
