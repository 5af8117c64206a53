package main

import (
	"log/slog"
	"time"

	"github.com/assetcraft/gemledger/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	LogFormat       string        `env:"APP_LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// StoreBackend selects the ProfileStore implementation: "postgres" or
	// "memory". There is no runtime fallback between them.
	StoreBackend string `env:"APP_STORE_BACKEND" envDefault:"postgres"`

	Postgres  config.PostgresConfig
	Redis     config.RedisConfig
	Gems      config.GemsConfig
	RateLimit config.RateLimitConfig
}
