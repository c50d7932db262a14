package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "funds")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 5, cfg.ReconcileMaxAttempts)
	assert.False(t, cfg.RedisEnabled())
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "app:pw@tcp(127.0.0.1:3306)/funds?parseTime=true&loc=UTC", cfg.DSN())
}

func TestLoadConfigPostgres(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "funds")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PAYOUT_INTERVAL", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.PayoutInterval)
	assert.Equal(t, "host=db user=app password=pw dbname=funds port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())

	t.Setenv("DATABASE_URL", "postgres://app@db/funds")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://app@db/funds", cfg.DSN())
}

func TestLoadConfigRejects(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "x")
		t.Setenv("DB_DRIVER", "oracle")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
