// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Refdata RefdataConfig `yaml:"refdata" mapstructure:"refdata"`
	Filter  FilterConfig  `yaml:"filter" mapstructure:"filter"`
	Render  RenderConfig  `yaml:"render" mapstructure:"render"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ScrapeConfig configures the source pages and fetch behavior.
type ScrapeConfig struct {
	SchoolsURL  string `yaml:"schools_url" mapstructure:"schools_url"`
	StationsURL string `yaml:"stations_url" mapstructure:"stations_url"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxSchools  int    `yaml:"max_schools" mapstructure:"max_schools"`
}

// GeocodeConfig configures the geocoding cascade.
type GeocodeConfig struct {
	NominatimBaseURL string `yaml:"nominatim_base_url" mapstructure:"nominatim_base_url"`
	GoogleKey        string `yaml:"google_key" mapstructure:"google_key"`
	GoogleBaseURL    string `yaml:"google_base_url" mapstructure:"google_base_url"`
	Region           string `yaml:"region" mapstructure:"region"`
	DailyQuota       int    `yaml:"daily_quota" mapstructure:"daily_quota"`
	BatchConcurrency int    `yaml:"batch_concurrency" mapstructure:"batch_concurrency"`
}

// RefdataConfig configures the authoritative school coordinates source.
type RefdataConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	NameField string `yaml:"name_field" mapstructure:"name_field"`
	XField    string `yaml:"x_field" mapstructure:"x_field"`
	YField    string `yaml:"y_field" mapstructure:"y_field"`
}

// FilterConfig configures the proximity filter.
type FilterConfig struct {
	RadiusKm float64 `yaml:"radius_km" mapstructure:"radius_km"`
}

// RenderConfig configures map and GeoJSON output.
type RenderConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Title     string `yaml:"title" mapstructure:"title"`
	StylePath string `yaml:"style_path" mapstructure:"style_path"`
}

// ServerConfig configures the artifact server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCHOOLRAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "schoolrail.db")
	v.SetDefault("scrape.schools_url", "https://bettereducation.com.au/school/Secondary/vic/vic_top_secondary_schools.aspx")
	v.SetDefault("scrape.stations_url", "https://en.wikipedia.org/wiki/List_of_Melbourne_railway_stations")
	v.SetDefault("scrape.user_agent", "schoolrail/1.0")
	v.SetDefault("scrape.max_schools", 0)
	v.SetDefault("geocode.nominatim_base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.google_base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocode.region", "Victoria, Australia")
	v.SetDefault("geocode.daily_quota", 2000)
	v.SetDefault("geocode.batch_concurrency", 4)
	v.SetDefault("filter.radius_km", 2)
	v.SetDefault("render.output_dir", "out")
	v.SetDefault("render.title", "Top schools and nearby train stations")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the configuration for the given mode. Modes map to
// command families: "pipeline" covers scrape/geocode/filter/run/render,
// "serve" covers the artifact server.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case "pipeline":
		if c.Scrape.SchoolsURL == "" {
			problems = append(problems, "scrape.schools_url is required")
		}
		if c.Scrape.StationsURL == "" {
			problems = append(problems, "scrape.stations_url is required")
		}
		if c.Filter.RadiusKm <= 0 {
			problems = append(problems, "filter.radius_km must be > 0")
		}
		if c.Geocode.BatchConcurrency < 1 || c.Geocode.BatchConcurrency > 32 {
			problems = append(problems, "geocode.batch_concurrency must be between 1 and 32")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
