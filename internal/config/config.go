package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App       App       `yaml:"app"`
	Log       Log       `yaml:"log"`
	Ops       Ops       `yaml:"ops"`
	Redis     Redis     `yaml:"redis"`
	Stream    Stream    `yaml:"stream"`
	Producer  Producer  `yaml:"producer"`
	Worker    Worker    `yaml:"worker"`
	Telemetry Telemetry `yaml:"telemetry"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"redis-streams-poc"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Ops struct {
	Addr string `yaml:"addr" env:"OPS_ADDR" env-default:":9091"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Stream struct {
	Name  string `yaml:"name" env:"STREAM_NAME" env-default:"number_stream"`
	Group string `yaml:"group" env:"STREAM_GROUP" env-default:"consumer_group"`
}

type Producer struct {
	ProduceInterval time.Duration `yaml:"produce_interval" env:"PRODUCE_INTERVAL" env-default:"1s"`
	Retention       Retention     `yaml:"retention"`
}

type Retention struct {
	CheckInterval time.Duration `yaml:"check_interval" env:"RETENTION_CHECK_INTERVAL" env-default:"10s"`
	HighWater     int64         `yaml:"high_water" env:"RETENTION_HIGH_WATER" env-default:"100"`
	LowWater      int64         `yaml:"low_water" env:"RETENTION_LOW_WATER" env-default:"50"`
}

type Worker struct {
	Batch         int64         `yaml:"batch" env:"WORKER_BATCH" env-default:"1"`
	Block         time.Duration `yaml:"block" env:"WORKER_BLOCK" env-default:"1s"`
	ClaimInterval time.Duration `yaml:"claim_interval" env:"WORKER_CLAIM_INTERVAL" env-default:"10s"`
	MinIdle       time.Duration `yaml:"min_idle" env:"WORKER_MIN_IDLE" env-default:"30s"`
	ClaimBatch    int64         `yaml:"claim_batch" env:"WORKER_CLAIM_BATCH" env-default:"10"`
	ProcessDelay  time.Duration `yaml:"process_delay" env:"WORKER_PROCESS_DELAY" env-default:"100ms"`
	OutputDir     string        `yaml:"output_dir" env:"WORKER_OUTPUT_DIR" env-default:"/output"`
}

type Telemetry struct {
	// Empty endpoint disables tracing entirely.
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT" env-default:""`
	Insecure     bool   `yaml:"insecure" env:"OTLP_INSECURE" env-default:"true"`
}

func New() (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else {
		// Allow env vars to override config file
		cleanenv.ReadEnv(cfg)
	}

	return cfg, nil
}
