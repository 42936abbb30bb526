package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Portal    PortalConfig
	Store     StoreConfig
	Pacing    PacingConfig
	Seeder    SeederConfig
	Knowledge KnowledgeConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SCPRS_APP_ENV" required:"true"`
	Port         string `envconfig:"SCPRS_APP_PORT" default:"8092"`
	LogLevel     string `envconfig:"SCPRS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SCPRS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// PortalConfig carries the empirically discovered SCPRS surface. The base URL
// and timeouts are configuration; the field ids live in internal/portal.
type PortalConfig struct {
	BaseURL        string        `envconfig:"SCPRS_PORTAL_BASE_URL" default:"https://suppliers.fiscal.ca.gov"`
	SearchPath     string        `envconfig:"SCPRS_PORTAL_SEARCH_PATH" default:"/psc/psfpd1/SUPPLIER/ERP/c/ZZ_PO.ZZ_SCPRS1_CMP.GBL"`
	UserAgent      string        `envconfig:"SCPRS_PORTAL_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"`
	LoadTimeout    time.Duration `envconfig:"SCPRS_PORTAL_LOAD_TIMEOUT" default:"15s"`
	SearchTimeout  time.Duration `envconfig:"SCPRS_PORTAL_SEARCH_TIMEOUT" default:"30s"`
	ProbeTimeout   time.Duration `envconfig:"SCPRS_PORTAL_PROBE_TIMEOUT" default:"8s"`
	InitAttempts   int           `envconfig:"SCPRS_PORTAL_INIT_ATTEMPTS" default:"3"`
	ReloadAttempts int           `envconfig:"SCPRS_PORTAL_RELOAD_ATTEMPTS" default:"2"`
}

type StoreConfig struct {
	Path string `envconfig:"SCPRS_STORE_PATH" default:"data/scprs_prices.db"`
}

// PacingConfig sets the politeness delays between portal round trips.
type PacingConfig struct {
	SearchInterval   time.Duration `envconfig:"SCPRS_PACING_SEARCH_INTERVAL" default:"500ms"`
	DetailInterval   time.Duration `envconfig:"SCPRS_PACING_DETAIL_INTERVAL" default:"300ms"`
	CategoryInterval time.Duration `envconfig:"SCPRS_PACING_CATEGORY_INTERVAL" default:"1200ms"`
}

type SeederConfig struct {
	MaxCategories     int `envconfig:"SCPRS_SEEDER_MAX_CATEGORIES" default:"20"`
	MaxPOsPerCategory int `envconfig:"SCPRS_SEEDER_MAX_POS_PER_CATEGORY" default:"5"`
}

type KnowledgeConfig struct {
	BaseURL string        `envconfig:"SCPRS_KNOWLEDGE_BASE_URL"`
	Timeout time.Duration `envconfig:"SCPRS_KNOWLEDGE_TIMEOUT" default:"10s"`
}

// Enabled reports whether a knowledge-ingest endpoint is configured.
func (k KnowledgeConfig) Enabled() bool {
	return strings.TrimSpace(k.BaseURL) != ""
}
