package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	BindEnv()
	t.Cleanup(viper.Reset)
}

func TestLoadSettlementConfig_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := LoadSettlementConfig()
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, LocksLocal, cfg.LockDriver)
	assert.Equal(t, NotifyLog, cfg.NotifyDriver)
	assert.Equal(t, "notification_queue", cfg.NotificationQueue)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "NGN", cfg.Currency)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
}

func TestLoadSettlementConfig_Environment(t *testing.T) {
	resetViper(t)
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOCKS_DRIVER", "redis")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("IDEMPOTENCY_TTL", "2h")

	cfg, err := LoadSettlementConfig()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, LocksRedis, cfg.LockDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Hour, cfg.IdempotencyTTL)
}

func TestLoadSettlementConfig_RejectsUnknownDrivers(t *testing.T) {
	tests := []struct {
		env, val string
	}{
		{"STORAGE_DRIVER", "sqlite"},
		{"LOCKS_DRIVER", "zookeeper"},
		{"NOTIFY_DRIVER", "sms"},
		{"BANK_CURRENCY", "NAIRA"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			resetViper(t)
			t.Setenv(tt.env, tt.val)

			_, err := LoadSettlementConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadServerConfig(t *testing.T) {
	resetViper(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://bank.example")

	cfg := LoadServerConfig()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, []string{"https://bank.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestInit_MissingFile(t *testing.T) {
	resetViper(t)
	err := Init(t.TempDir() + "/missing.env")
	assert.Error(t, err)
}
