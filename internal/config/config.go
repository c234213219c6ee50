// Package config loads geoassist settings from config.yaml, .env and the
// environment.
package config

import (
	"errors"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/geoassist/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Geocode     GeocodeConfig     `yaml:"geocode" mapstructure:"geocode"`
	Knowledge   KnowledgeConfig   `yaml:"knowledge" mapstructure:"knowledge"`
	Environment EnvironmentConfig `yaml:"environment" mapstructure:"environment"`
	AirQuality  AirQualityConfig  `yaml:"air_quality" mapstructure:"air_quality"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Resilience  ResilienceConfig  `yaml:"resilience" mapstructure:"resilience"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int           `yaml:"port" mapstructure:"port"`
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GeocodeConfig configures the geocoding adapters.
type GeocodeConfig struct {
	UserAgent      string        `yaml:"user_agent" mapstructure:"user_agent"`
	AcceptLanguage string        `yaml:"accept_language" mapstructure:"accept_language"`
	NominatimURL   string        `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	GoogleKey      string        `yaml:"google_key" mapstructure:"google_key"`
	GoogleURL      string        `yaml:"google_url" mapstructure:"google_url"`
	GoogleLanguage string        `yaml:"google_language" mapstructure:"google_language"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	SuggestTimeout time.Duration `yaml:"suggest_timeout" mapstructure:"suggest_timeout"`
	SuggestLimit   int           `yaml:"suggest_limit" mapstructure:"suggest_limit"`
}

// KnowledgeConfig configures the knowledge-graph lookups.
type KnowledgeConfig struct {
	Endpoint  string        `yaml:"endpoint" mapstructure:"endpoint"`
	Languages []string      `yaml:"languages" mapstructure:"languages"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Limit     int           `yaml:"limit" mapstructure:"limit"`
}

// EnvironmentConfig configures the flood, fire and urban lookups.
type EnvironmentConfig struct {
	GloFASURL       string        `yaml:"glofas_url" mapstructure:"glofas_url"`
	GWISURL         string        `yaml:"gwis_url" mapstructure:"gwis_url"`
	IGNURL          string        `yaml:"ign_url" mapstructure:"ign_url"`
	OverpassMirrors []string      `yaml:"overpass_mirrors" mapstructure:"overpass_mirrors"`
	WMSTimeout      time.Duration `yaml:"wms_timeout" mapstructure:"wms_timeout"`
	OverpassTimeout time.Duration `yaml:"overpass_timeout" mapstructure:"overpass_timeout"`
	LookupTimeout   time.Duration `yaml:"lookup_timeout" mapstructure:"lookup_timeout"`
}

// AirQualityConfig configures the AQICN feed. An empty token disables it.
type AirQualityConfig struct {
	Token   string        `yaml:"token" mapstructure:"token"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig configures the response caches and their optional shared tier.
type CacheConfig struct {
	Store        store.Config  `yaml:"store" mapstructure:"store"`
	MaxEntries   int           `yaml:"max_entries" mapstructure:"max_entries"`
	GeocodeTTL   time.Duration `yaml:"geocode_ttl" mapstructure:"geocode_ttl"`
	KnowledgeTTL time.Duration `yaml:"knowledge_ttl" mapstructure:"knowledge_ttl"`
	SheltersTTL  time.Duration `yaml:"shelters_ttl" mapstructure:"shelters_ttl"`
}

// ResilienceConfig configures retries and circuit breakers for upstream calls.
type ResilienceConfig struct {
	MaxAttempts      int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff   time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff       time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
}

// AnthropicConfig holds Anthropic API settings for the report writer. An
// empty key disables reports.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LogFormats lists the accepted log.format values.
var LogFormats = []string{"json", "console"}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range map[string][]string{
		"air_quality.token":  {"GEOASSIST_AIR_QUALITY_TOKEN", "AQICN_TOKEN"},
		"geocode.google_key": {"GEOASSIST_GEOCODE_GOOGLE_KEY", "GOOGLE_MAPS_API_KEY"},
		"anthropic.key":      {"GEOASSIST_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"},
		"cache.store.dsn":    {"GEOASSIST_CACHE_STORE_DSN", "DATABASE_URL"},
	} {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("geocode.user_agent", "geoassist/1.0")
	v.SetDefault("geocode.accept_language", "es,en")
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.google_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocode.google_language", "es")
	v.SetDefault("geocode.timeout", "8s")
	v.SetDefault("geocode.suggest_timeout", "3s")
	v.SetDefault("geocode.suggest_limit", 12)
	v.SetDefault("knowledge.endpoint", "https://query.wikidata.org/sparql")
	v.SetDefault("knowledge.languages", []string{"es", "en"})
	v.SetDefault("knowledge.timeout", "10s")
	v.SetDefault("knowledge.limit", 10)
	v.SetDefault("environment.glofas_url", "https://ows.globalfloods.eu/glofas-ows/ows.py")
	v.SetDefault("environment.gwis_url", "https://maps.effis.emergency.copernicus.eu/gwis")
	v.SetDefault("environment.ign_url", "https://www.ign.es/wms-inspire/ign-base")
	v.SetDefault("environment.overpass_mirrors", []string{
		"https://overpass-api.de/api/interpreter",
		"https://overpass.kumi.systems/api/interpreter",
		"https://overpass.nchc.org.tw/api/interpreter",
	})
	v.SetDefault("environment.wms_timeout", "8s")
	v.SetDefault("environment.overpass_timeout", "12s")
	v.SetDefault("environment.lookup_timeout", "12s")
	v.SetDefault("air_quality.base_url", "https://api.waqi.info")
	v.SetDefault("air_quality.timeout", "6s")
	v.SetDefault("cache.store.driver", "memory")
	v.SetDefault("cache.store.max_conns", 4)
	v.SetDefault("cache.store.min_conns", 1)
	v.SetDefault("cache.max_entries", 5000)
	v.SetDefault("cache.geocode_ttl", "10m")
	v.SetDefault("cache.knowledge_ttl", "24h")
	v.SetDefault("cache.shelters_ttl", "5m")
	v.SetDefault("resilience.max_attempts", 2)
	v.SetDefault("resilience.initial_backoff", "300ms")
	v.SetDefault("resilience.max_backoff", "2s")
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.cooldown", "30s")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate rejects settings that would break request handling at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if !slices.Contains(LogFormats, c.Log.Format) {
		return eris.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	if !slices.Contains(store.Drivers, c.Cache.Store.Driver) {
		return eris.Errorf("config: unknown cache.store.driver %q", c.Cache.Store.Driver)
	}
	if c.Cache.Store.Driver != "memory" && c.Cache.Store.DSN == "" {
		return eris.Errorf("config: cache.store.dsn is required for driver %q", c.Cache.Store.Driver)
	}
	for name, d := range map[string]time.Duration{
		"geocode.timeout":              c.Geocode.Timeout,
		"geocode.suggest_timeout":      c.Geocode.SuggestTimeout,
		"knowledge.timeout":            c.Knowledge.Timeout,
		"environment.wms_timeout":      c.Environment.WMSTimeout,
		"environment.overpass_timeout": c.Environment.OverpassTimeout,
		"environment.lookup_timeout":   c.Environment.LookupTimeout,
		"air_quality.timeout":          c.AirQuality.Timeout,
		"cache.geocode_ttl":            c.Cache.GeocodeTTL,
		"cache.knowledge_ttl":          c.Cache.KnowledgeTTL,
		"cache.shelters_ttl":           c.Cache.SheltersTTL,
	} {
		if d <= 0 {
			return eris.Errorf("config: %s must be positive, got %s", name, d)
		}
	}
	if len(c.Environment.OverpassMirrors) == 0 {
		return eris.New("config: environment.overpass_mirrors needs at least one URL")
	}
	return nil
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
