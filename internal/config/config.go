// Package config loads the command line configuration from an optional
// config file, a .env file and EDGAR_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Sternrassler/sec-edgar-client/pkg/facts"
	"github.com/Sternrassler/sec-edgar-client/pkg/logging"
	"github.com/Sternrassler/sec-edgar-client/pkg/ratelimit"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// EDGAR_USER_AGENT_EMAIL for user_agent.email.
const EnvPrefix = "EDGAR"

// Config is the complete command line configuration.
type Config struct {
	UserAgent      UserAgentConfig `mapstructure:"user_agent"`
	DownloadFolder string          `mapstructure:"download_folder"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
	Retry          RetryConfig     `mapstructure:"retry"`
	Redis          RedisConfig     `mapstructure:"redis"`
	Cache          CacheConfig     `mapstructure:"cache"`
	Extract        ExtractConfig   `mapstructure:"extract"`
	Log            LogConfig       `mapstructure:"log"`
	Serve          ServeConfig     `mapstructure:"serve"`
}

// UserAgentConfig identifies the caller to EDGAR.
type UserAgentConfig struct {
	Company string `mapstructure:"company"`
	Email   string `mapstructure:"email"`
}

// RateLimitConfig sizes the request budget.
type RateLimitConfig struct {
	RequestsPerSecond int    `mapstructure:"requests_per_second"`
	RedisKey          string `mapstructure:"redis_key"`
}

// RetryConfig is the transient failure policy.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	BackoffFactor  float64       `mapstructure:"backoff_factor"`
}

// RedisConfig enables the shared budget and cache when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// ExtractConfig controls bulk extraction.
type ExtractConfig struct {
	Workers int    `mapstructure:"workers"`
	Format  string `mapstructure:"format"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// ServeConfig controls the HTTP server.
type ServeConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// defaults are applied before the config file and the environment.
var defaults = map[string]any{
	"user_agent.company":             "",
	"user_agent.email":               "",
	"download_folder":                ".",
	"rate_limit.requests_per_second": ratelimit.DefaultRequestsPerSecond,
	"rate_limit.redis_key":           ratelimit.DefaultRedisKey,
	"retry.max_attempts":             10,
	"retry.initial_backoff":          "100ms",
	"retry.max_backoff":              "30s",
	"retry.backoff_factor":           2.0,
	"redis.addr":                     "",
	"redis.password":                 "",
	"redis.db":                       0,
	"cache.enabled":                  false,
	"cache.ttl":                      "1h",
	"extract.workers":                0,
	"extract.format":                 string(facts.FormatCSV),
	"log.level":                      string(logging.LevelInfo),
	"log.pretty":                     false,
	"serve.addr":                     ":8080",
	"serve.shutdown_timeout":         "10s",
}

// Load reads the configuration. configFile may be empty, in which case an
// edgar.yaml in the working directory is used when present. envFile names a
// dotenv file whose variables are exported before the environment is read;
// a missing envFile is not an error.
func Load(configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("edgar")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(settings(v)); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// settings resolves every known key through v, so environment overrides
// take part even for keys absent from the config file.
func settings(v *viper.Viper) map[string]any {
	out := make(map[string]any)
	for key := range defaults {
		parts := strings.Split(key, ".")
		m := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := m[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				m[p] = next
			}
			m = next
		}
		m[parts[len(parts)-1]] = v.Get(key)
	}
	return out
}

// Validate checks values that cannot be defaulted. The user agent is not
// checked here: commands that reach EDGAR require it, serve does not.
func (c *Config) Validate() error {
	if c.RateLimit.RequestsPerSecond < 1 {
		return fmt.Errorf("rate_limit.requests_per_second must be at least 1, got %d", c.RateLimit.RequestsPerSecond)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BackoffFactor < 1 {
		return fmt.Errorf("retry.backoff_factor must be at least 1, got %v", c.Retry.BackoffFactor)
	}
	if c.Extract.Workers < 0 {
		return fmt.Errorf("extract.workers must not be negative, got %d", c.Extract.Workers)
	}
	if _, err := facts.ParseFormat(c.Extract.Format); err != nil {
		return fmt.Errorf("extract.format: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// RequireUserAgent reports a missing company name or email.
func (c *Config) RequireUserAgent() error {
	var missing []string
	if strings.TrimSpace(c.UserAgent.Company) == "" {
		missing = append(missing, "user_agent.company ("+EnvPrefix+"_USER_AGENT_COMPANY)")
	}
	if strings.TrimSpace(c.UserAgent.Email) == "" {
		missing = append(missing, "user_agent.email ("+EnvPrefix+"_USER_AGENT_EMAIL)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("EDGAR requires a user agent; set %s", strings.Join(missing, " and "))
	}
	return nil
}
