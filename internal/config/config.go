package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Auth      AuthConfig      `koanf:"auth"`
	Providers ProvidersConfig `koanf:"providers"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Search    SearchConfig    `koanf:"search"`
	Stream    StreamConfig    `koanf:"stream"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type StoreConfig struct {
	Backend     string `koanf:"backend"`
	TTL         string `koanf:"ttl"`
	RedisAddr   string `koanf:"redis_addr"`
	RedisDB     int    `koanf:"redis_db"`
	PostgresURL string `koanf:"postgres_url"`
	MaxConns    int    `koanf:"max_connections"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
}

type ProvidersConfig struct {
	Skylens ProviderConfig `koanf:"skylens"`
	Voyagr  ProviderConfig `koanf:"voyagr"`
}

type ProviderConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Timeout string `koanf:"timeout"`
	Limit   int    `koanf:"limit"`
}

type AnalysisConfig struct {
	BaseURL            string `koanf:"base_url"`
	APIKey             string `koanf:"api_key"`
	Model              string `koanf:"model"`
	ModelAuthenticated string `koanf:"model_authenticated"`
	Timeout            string `koanf:"timeout"`
}

type SearchConfig struct {
	RecordCap        int `koanf:"record_cap"`
	GuestRecordCap   int `koanf:"guest_record_cap"`
	HiddenCandidates int `koanf:"hidden_candidates"`
	HiddenFanout     int `koanf:"hidden_fanout"`
}

type StreamConfig struct {
	PollInterval string `koanf:"poll_interval"`
	MaxWait      string `koanf:"max_wait"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load reads config from TOML file (if provided) then overlays env vars.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, err
		}
	}

	// Env vars: AS_STORE_REDIS_ADDR -> store.redis_addr is ambiguous with
	// dot-mapping, so only the first underscore splits the section.
	if err := k.Load(env.ProviderWithValue("AS_", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		trimmed := strings.ToLower(strings.TrimPrefix(key, "AS_"))
		mapped := strings.Replace(trimmed, "_", ".", 1)
		return mapped, value
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Duration parses a config duration string, falling back when unset or bad.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
