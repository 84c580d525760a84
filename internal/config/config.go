// Package config lê a configuração do servidor das variáveis de ambiente.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"fishingchat/internal/store"
)

type Config struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// CatalogFile vazio usa a tabela embutida.
	CatalogFile string `env:"CATALOG_FILE"`

	StoreDriver  string        `env:"STORE_DRIVER" envDefault:"file"`
	StorePath    string        `env:"STORE_PATH" envDefault:"db.json"`
	StoreDSN     string        `env:"STORE_DSN"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"2s"`

	ConsulAddr     string `env:"CONSUL_HTTP_ADDR"`
	ConsulKVPrefix string `env:"CONSUL_KV_PREFIX" envDefault:"fishingchat/players"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Key       string `env:"S3_KEY" envDefault:"fishingchat/db.json"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3PathStyle bool   `env:"S3_PATH_STYLE"`

	ChatLogDir string `env:"CHATLOG_DIR" envDefault:"chatlogs"`

	NATSURL           string `env:"NATS_URL"`
	NATSSubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"fishingchat.room"`

	RateLimitPerSec float64 `env:"RATE_LIMIT_PER_SEC" envDefault:"10"`
	RateLimitBurst  int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	ServiceName string `env:"SERVICE_NAME" envDefault:"fishingchat"`
}

// Load lê e valida a configuração.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checa combinações que o parser sozinho não pega.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, fmt.Errorf("STORE_TIMEOUT must be positive"))
	}
	if c.RateLimitPerSec < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, fmt.Errorf("rate limit must not be negative"))
	}

	switch store.Driver(c.StoreDriver) {
	case store.DriverFile, store.DriverMemory:
	case store.DriverSQLite:
		if c.StorePath == "" {
			errs = append(errs, fmt.Errorf("STORE_PATH is required for sqlite"))
		}
	case store.DriverPostgres:
		if c.StoreDSN == "" {
			errs = append(errs, fmt.Errorf("STORE_DSN is required for postgres"))
		}
	case store.DriverConsul:
		if c.ConsulAddr == "" {
			errs = append(errs, fmt.Errorf("CONSUL_HTTP_ADDR is required for consul"))
		}
	case store.DriverS3:
		if c.S3Bucket == "" {
			errs = append(errs, fmt.Errorf("S3_BUCKET is required for s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %q", store.ErrUnknownDriver, c.StoreDriver))
	}
	return errors.Join(errs...)
}

// Addr é o endereço de escuta HTTP.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
