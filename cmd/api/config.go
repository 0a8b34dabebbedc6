package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/wagerengine/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Postgres config.PostgresConfig
	Engine   config.EngineConfig
	Accounts config.AccountsConfig
	Redis    config.RedisConfig
	Kafka    config.KafkaConfig
	Tracing  config.TracingConfig
}
