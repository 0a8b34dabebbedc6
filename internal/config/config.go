package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// EngineConfig carries the product rules of the wager engine.
type EngineConfig struct {
	TxDenomination   int64         `env:"ENGINE_TX_DENOMINATION" envDefault:"1000"`
	HouseAccount     string        `env:"ENGINE_HOUSE_ACCOUNT" envDefault:"house"`
	WagerWaitTimeout time.Duration `env:"ENGINE_WAGER_WAIT_TIMEOUT" envDefault:"10m"`
	ResultWindow     time.Duration `env:"ENGINE_RESULT_WINDOW" envDefault:"1h"`
	SweepInterval    time.Duration `env:"ENGINE_SWEEP_INTERVAL" envDefault:"15s"`
	SweepBatch       int           `env:"ENGINE_SWEEP_BATCH" envDefault:"100"`
	AdminIDs         []string      `env:"ENGINE_ADMIN_IDS" envDefault:""`
}

type AccountsConfig struct {
	URL     string        `env:"ACCOUNTS_URL" envDefault:""`
	Timeout time.Duration `env:"ACCOUNTS_TIMEOUT" envDefault:"2s"`
}

type RedisConfig struct {
	Addr    string `env:"REDIS_ADDR" envDefault:""`
	Channel string `env:"REDIS_CHANNEL" envDefault:"wagerengine.events"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envDefault:""`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"wagerengine.events"`
}

type TracingConfig struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"wagerengine"`
}
