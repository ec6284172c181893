package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config настройки процесса из переменных окружения
type Config struct {
	Port         string
	StoreDriver  string
	DBPath       string
	RedisAddr    string
	CartTTL      time.Duration
	KafkaBrokers string
	KafkaTopic   string
	LogFormat    string
	LogLevel     string
	GinMode      string
}

// Load читает окружение. Некорректные значения не фатальны:
// пишется предупреждение и берётся значение по умолчанию.
func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "9091"),
		StoreDriver:  strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		DBPath:       getEnv("DB_PATH", "./storefront.db"),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		CartTTL:      7 * 24 * time.Hour,
		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "storefront.orders"),
		LogFormat:    strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		GinMode:      getEnv("GIN_MODE", "release"),
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Warn("invalid PORT, falling back to default", "PORT", cfg.Port)
		cfg.Port = "9091"
	}
	if cfg.StoreDriver != DriverMemory && cfg.StoreDriver != DriverSQLite {
		slog.Warn("unknown STORE_DRIVER, using memory", "STORE_DRIVER", cfg.StoreDriver)
		cfg.StoreDriver = DriverMemory
	}
	if v, ok := os.LookupEnv("CART_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("invalid CART_TTL, using default", "CART_TTL", v, "default", cfg.CartTTL)
		} else {
			cfg.CartTTL = d
		}
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		slog.Warn("unknown LOG_FORMAT, using text", "LOG_FORMAT", cfg.LogFormat)
		cfg.LogFormat = "text"
	}
	return cfg
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
