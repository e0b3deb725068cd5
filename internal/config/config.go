package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix   = "LEADSCOUT_"
	defaultPath = "configs/leadscout.yaml"
)

// ErrDatabaseURLMissing is returned together with a usable Config; only the
// server's persistence needs the database.
var ErrDatabaseURLMissing = errors.New("DATABASE_URL not set")

type Config struct {
	Env      string `koanf:"env" validate:"oneof=development production test"`
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Transport TransportConfig `koanf:"transport"`
	Sources   SourcesConfig   `koanf:"sources"`
	Search    SearchConfig    `koanf:"search"`
	Registry  RegistryConfig  `koanf:"registry"`
	Probe     ProbeConfig     `koanf:"probe"`
	Discovery DiscoveryConfig `koanf:"discovery"`
}

type ServerConfig struct {
	ListenAddr      string        `koanf:"listen_addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// WaitTimeout caps POST /discoveries?wait=true.
	WaitTimeout time.Duration `koanf:"wait_timeout"`
}

type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns" validate:"gte=0"`
}

type RedisConfig struct {
	URL string        `koanf:"url"`
	TTL time.Duration `koanf:"ttl"`
}

type TransportConfig struct {
	MaxIdleConns        int    `koanf:"max_idle_conns" validate:"gte=0"`
	MaxIdleConnsPerHost int    `koanf:"max_idle_conns_per_host" validate:"gte=0"`
	MaxConnsPerHost     int    `koanf:"max_conns_per_host" validate:"gte=0"`
	UserAgent           string `koanf:"user_agent"`
}

type ProviderConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"`
	Timeout           time.Duration `koanf:"timeout"`
}

type SourcesConfig struct {
	Enabled      []string       `koanf:"enabled" validate:"dive,oneof=google_places yelp foursquare"`
	GooglePlaces ProviderConfig `koanf:"google_places"`
	Yelp         ProviderConfig `koanf:"yelp"`
	Foursquare   ProviderConfig `koanf:"foursquare"`
}

type SearchConfig struct {
	APIKey   string        `koanf:"api_key"`
	EngineID string        `koanf:"engine_id"`
	Endpoint string        `koanf:"endpoint"`
	Results  int           `koanf:"results" validate:"min=1,max=10"`
	Timeout  time.Duration `koanf:"timeout"`
	Exclude  []string      `koanf:"exclude"`
}

type RegistryConfig struct {
	Kind              string        `koanf:"kind" validate:"oneof=rdap whois"`
	RDAPURL           string        `koanf:"rdap_url"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"`
	Timeout           time.Duration `koanf:"timeout"`
}

type ProbeConfig struct {
	Timeout      time.Duration `koanf:"timeout"`
	MaxBodyBytes int64         `koanf:"max_body_bytes" validate:"gte=0"`
}

type DiscoveryConfig struct {
	Workers int `koanf:"workers" validate:"min=1,max=256"`
	// RunWorkers is the number of background job workers in server mode; 0 disables them.
	RunWorkers   int           `koanf:"run_workers" validate:"gte=0"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

func defaults() Config {
	return Config{
		Env:      "development",
		LogLevel: "info",
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			WaitTimeout:     5 * time.Minute,
		},
		Database: DatabaseConfig{MaxConns: 10},
		Redis:    RedisConfig{TTL: 24 * time.Hour},
		Transport: TransportConfig{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 4,
			MaxConnsPerHost:     8,
		},
		Sources: SourcesConfig{
			Enabled:      []string{"google_places", "yelp", "foursquare"},
			GooglePlaces: ProviderConfig{RequestsPerSecond: 5, Timeout: 15 * time.Second},
			Yelp:         ProviderConfig{RequestsPerSecond: 5, Timeout: 15 * time.Second},
			Foursquare:   ProviderConfig{RequestsPerSecond: 5, Timeout: 15 * time.Second},
		},
		Search:    SearchConfig{Results: 5, Timeout: 10 * time.Second},
		Registry:  RegistryConfig{Kind: "rdap", RequestsPerSecond: 2, Timeout: 10 * time.Second},
		Probe:     ProbeConfig{Timeout: 10 * time.Second, MaxBodyBytes: 2 << 20},
		Discovery: DiscoveryConfig{Workers: 8, PollInterval: 500 * time.Millisecond},
	}
}

// Load layers struct defaults, an optional YAML file (LEADSCOUT_CONFIG, default
// configs/leadscout.yaml) and LEADSCOUT_* environment variables, "__" marking
// nesting. A .env file is read first. The legacy provider variables fill
// credentials left empty.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv(envPrefix + "CONFIG")
	if path == "" {
		path = defaultPath
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit config file path; a missing file is skipped.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	d := defaults()
	if err := k.Load(structs.Provider(&d, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading %s: %w", path, err)
			}
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	applyLegacyEnv(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Database.URL == "" {
		return &cfg, ErrDatabaseURLMissing
	}
	return &cfg, nil
}

func applyLegacyEnv(cfg *Config) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fill(&cfg.Sources.GooglePlaces.APIKey, "GOOGLE_PLACES_API_KEY")
	fill(&cfg.Sources.Yelp.APIKey, "YELP_API_KEY")
	fill(&cfg.Sources.Foursquare.APIKey, "FOURSQUARE_API_KEY")
	fill(&cfg.Search.APIKey, "GOOGLE_API_KEY")
	fill(&cfg.Search.EngineID, "GOOGLE_CSE_ID")
	fill(&cfg.Database.URL, "DATABASE_URL")
	fill(&cfg.Redis.URL, "REDIS_URL")
}
