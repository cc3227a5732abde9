package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is applied to every environment variable envconfig reads.
const EnvPrefix = "STOCKDECK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	API      APIConfig
	Poller   PollerConfig
	Keystore KeystoreConfig
	Ops      OpsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOCKDECK_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"STOCKDECK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKDECK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL string        `envconfig:"STOCKDECK_API_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOCKDECK_API_TIMEOUT" default:"10s"`
}

func (a APIConfig) validate() error {
	trimmed := strings.TrimSpace(a.BaseURL)
	if trimmed == "" {
		return fmt.Errorf("STOCKDECK_API_BASE_URL is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("STOCKDECK_API_BASE_URL must be an absolute URL, got %q", a.BaseURL)
	}
	return nil
}

type PollerConfig struct {
	Interval       time.Duration `envconfig:"STOCKDECK_POLL_INTERVAL" default:"10s"`
	Dwell          time.Duration `envconfig:"STOCKDECK_POPUP_DWELL" default:"6s"`
	TransientLimit int           `envconfig:"STOCKDECK_POPUP_LIMIT" default:"3"`
}

type KeystoreConfig struct {
	Path string `envconfig:"STOCKDECK_KEYSTORE_PATH" default:"stockdeck.db"`
}

type OpsConfig struct {
	Addr string `envconfig:"STOCKDECK_OPS_ADDR" default:":9473"`
}
