package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// DatabaseURL is optional; without it the cache and job history are off.
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"CT_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"CT_DB_MAX_CONNS" default:"8"`

	BackendsFile   string `envconfig:"CELLTRANS_BACKENDS_FILE" default:"backends.yaml"`
	Workers        int    `envconfig:"CELLTRANS_WORKERS" default:"1"`
	AdminTokenHash string `envconfig:"CELLTRANS_ADMIN_TOKEN_HASH" default:""`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	DeepLXEndpoint string `envconfig:"DEEPLX_ENDPOINT" default:"http://127.0.0.1:1188"`
	DeepLXToken    string `envconfig:"DEEPLX_TOKEN" default:""`
	LocalEndpoint  string `envconfig:"TRANSLATION_ENDPOINT" default:""`
	LocalModel     string `envconfig:"TRANSLATION_MODEL" default:""`
	LocalAPIKey    string `envconfig:"TRANSLATION_API_KEY" default:""`
	GoogleAPIKey   string `envconfig:"GOOGLE_TRANSLATE_API_KEY" default:""`
	GoogleEndpoint string `envconfig:"GOOGLE_TRANSLATE_ENDPOINT" default:""`
	LibreEndpoint  string `envconfig:"LIBRETRANSLATE_ENDPOINT" default:""`
	LibreAPIKey    string `envconfig:"LIBRETRANSLATE_API_KEY" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMinConns < 0 {
		return fmt.Errorf("CT_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("CT_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("CT_DB_MIN_CONNS (%d) cannot exceed CT_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.Workers < 1 {
		return fmt.Errorf("CELLTRANS_WORKERS must be >= 1")
	}
	if hash := strings.TrimSpace(c.AdminTokenHash); hash != "" && !strings.HasPrefix(hash, "$2") {
		return fmt.Errorf("CELLTRANS_ADMIN_TOKEN_HASH must be a bcrypt hash")
	}
	return nil
}

// HasDatabase reports whether persistence is configured.
func (c *Config) HasDatabase() bool {
	return c != nil && strings.TrimSpace(c.DatabaseURL) != ""
}

// CORSAllowedOriginsList returns the trimmed origins without blanks or
// repeats, in configured order.
func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}
	var origins []string
	for _, origin := range c.CORSAllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" && !slices.Contains(origins, origin) {
			origins = append(origins, origin)
		}
	}
	return origins
}
