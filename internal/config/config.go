package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Redis       RedisConfig       `yaml:"redis" mapstructure:"redis"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Discovery   DiscoveryConfig   `yaml:"discovery" mapstructure:"discovery"`
	Apify       ApifyConfig       `yaml:"apify" mapstructure:"apify"`
	Google      GoogleConfig      `yaml:"google" mapstructure:"google"`
	Apollo      ApolloConfig      `yaml:"apollo" mapstructure:"apollo"`
	Dropcontact DropcontactConfig `yaml:"dropcontact" mapstructure:"dropcontact"`
	Sirene      SireneConfig      `yaml:"sirene" mapstructure:"sirene"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Scrape      ScrapeConfig      `yaml:"scrape" mapstructure:"scrape"`
	Merge       MergeConfig       `yaml:"merge" mapstructure:"merge"`
	Export      ExportConfig      `yaml:"export" mapstructure:"export"`
	Blacklist   BlacklistConfig   `yaml:"blacklist" mapstructure:"blacklist"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Monitoring  MonitoringConfig  `yaml:"monitoring" mapstructure:"monitoring"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the cache and run store.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres redis"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours" validate:"gte=1"`
}

// CacheTTL returns the lead cache lifetime.
func (s StoreConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLHours) * time.Hour
}

// RedisConfig is used when store.driver is redis.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db" validate:"gte=0"`
}

// PipelineConfig tunes a run.
type PipelineConfig struct {
	MinScore          int  `yaml:"min_score" mapstructure:"min_score" validate:"gte=0,lte=100"`
	Workers           int  `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
	LookupTimeoutSecs int  `yaml:"lookup_timeout_secs" mapstructure:"lookup_timeout_secs" validate:"gte=1"`
	MaxResults        int  `yaml:"max_results" mapstructure:"max_results" validate:"gte=1"`
	ForceRefresh      bool `yaml:"force_refresh" mapstructure:"force_refresh"`
}

// LookupTimeout returns the per-source call deadline.
func (p PipelineConfig) LookupTimeout() time.Duration {
	return time.Duration(p.LookupTimeoutSecs) * time.Second
}

// DiscoveryConfig selects the business discovery provider.
type DiscoveryConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider" validate:"oneof=apify google"`
	Language string `yaml:"language" mapstructure:"language"`
	Region   string `yaml:"region" mapstructure:"region"`
}

// ApifyConfig holds Apify actor settings.
type ApifyConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	ActorID string `yaml:"actor_id" mapstructure:"actor_id"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ApolloConfig holds Apollo.io API settings.
type ApolloConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	PerPage int    `yaml:"per_page" mapstructure:"per_page" validate:"gte=1,lte=100"`
}

// DropcontactConfig holds Dropcontact API settings.
type DropcontactConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	MaxWaitSecs      int    `yaml:"max_wait_secs" mapstructure:"max_wait_secs" validate:"gte=1"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs" validate:"gte=1"`
}

// SireneConfig configures the company registry. The public API needs no
// key, so Enabled is the capability flag.
type SireneConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	HaikuModel string `yaml:"haiku_model" mapstructure:"haiku_model"`
	// SizeEstimate enables the LLM headcount fallback.
	SizeEstimate bool `yaml:"size_estimate" mapstructure:"size_estimate"`
}

// ScrapeConfig configures contact-page crawling.
type ScrapeConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	MaxPages          int     `yaml:"max_pages" mapstructure:"max_pages" validate:"gte=1"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gte=1"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// MergeConfig points at an optional ranking weights file.
type MergeConfig struct {
	RankingPath string `yaml:"ranking_path" mapstructure:"ranking_path"`
}

// ExportConfig selects and configures the export sink.
type ExportConfig struct {
	Format string       `yaml:"format" mapstructure:"format" validate:"oneof=csv xlsx sheets"`
	Dir    string       `yaml:"dir" mapstructure:"dir"`
	Prefix string       `yaml:"prefix" mapstructure:"prefix"`
	Sheets SheetsConfig `yaml:"sheets" mapstructure:"sheets"`
}

// SheetsConfig holds Google Sheets export settings.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	SheetName       string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// BlacklistConfig locates the company blacklist file.
type BlacklistConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port" validate:"gte=1,lte=65535"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitoringConfig configures background alert checks.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold" validate:"gte=0,lte=1"`
	ZeroContactThreshold float64 `yaml:"zero_contact_threshold" mapstructure:"zero_contact_threshold" validate:"gte=0,lte=1"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return eris.Errorf("config: invalid %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return eris.Wrap(err, "config: validate")
	}
	if c.Export.Format == "sheets" && c.Export.Sheets.SpreadsheetID == "" {
		return eris.New("config: export.sheets.spreadsheet_id is required for sheets export")
	}
	return nil
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit YAML file in place of ./config.yaml.
// Unlike the default file, an explicit one must exist.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadgen.db")
	v.SetDefault("store.cache_ttl_hours", 720)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("pipeline.min_score", 50)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.lookup_timeout_secs", 30)
	v.SetDefault("pipeline.max_results", 50)
	v.SetDefault("pipeline.force_refresh", false)
	v.SetDefault("discovery.provider", "apify")
	v.SetDefault("discovery.language", "fr")
	v.SetDefault("discovery.region", "FR")
	v.SetDefault("apify.token", "")
	v.SetDefault("apify.actor_id", "compass~crawler-google-places")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("google.key", "")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("apollo.key", "")
	v.SetDefault("apollo.base_url", "https://api.apollo.io/v1")
	v.SetDefault("apollo.per_page", 5)
	v.SetDefault("dropcontact.key", "")
	v.SetDefault("dropcontact.base_url", "https://api.dropcontact.io")
	v.SetDefault("dropcontact.max_wait_secs", 60)
	v.SetDefault("dropcontact.poll_interval_secs", 2)
	v.SetDefault("sirene.enabled", true)
	v.SetDefault("sirene.base_url", "https://recherche-entreprises.api.gouv.fr")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.size_estimate", true)
	v.SetDefault("scrape.enabled", true)
	v.SetDefault("scrape.max_pages", 3)
	v.SetDefault("scrape.timeout_secs", 10)
	v.SetDefault("scrape.requests_per_second", 2)
	v.SetDefault("scrape.user_agent", "")
	v.SetDefault("merge.ranking_path", "")
	v.SetDefault("export.format", "csv")
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.prefix", "leads")
	v.SetDefault("export.sheets.spreadsheet_id", "")
	v.SetDefault("export.sheets.credentials_file", "credentials.json")
	v.SetDefault("export.sheets.sheet_name", "Leads")
	v.SetDefault("blacklist.path", "blacklist.json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.3)
	v.SetDefault("monitoring.zero_contact_threshold", 0.6)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
