package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_DRIVER", "DB_PATH", "REDIS_ADDR", "CART_TTL", "KAFKA_BROKERS", "KAFKA_TOPIC", "LOG_FORMAT", "LOG_LEVEL", "GIN_MODE"} {
		t.Setenv(k, "")
	}
	// пустые значения считаются заданными: проверяем откат для тех, что валидируются
	cfg := Load()
	assert.Equal(t, "9091", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.CartTTL)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CART_TTL", "2h")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2*time.Hour, cfg.CartTTL)
	assert.Equal(t, "k1:9092,k2:9092", cfg.KafkaBrokers)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_InvalidFallsBack(t *testing.T) {
	t.Setenv("PORT", "http")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("CART_TTL", "-5m")
	t.Setenv("LOG_FORMAT", "xml")

	cfg := Load()
	assert.Equal(t, "9091", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.CartTTL)
	assert.Equal(t, "text", cfg.LogFormat)
}
