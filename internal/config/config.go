// Package config loads application configuration from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "PRREADY"

// Config holds the validated application configuration.
type Config struct {
	GitHubToken       string
	ListenAddr        string
	DBPath            string
	CacheTTL          time.Duration
	RateLimit         int
	RateWindow        time.Duration
	MaxItemsPerSource int // 0 means uncapped.
	FetchTimeout      time.Duration

	// RedisAddr selects Redis as the durable result tier when non-empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// UseRedis reports whether the durable result tier is Redis rather than SQLite.
func (c *Config) UseRedis() bool {
	return c.RedisAddr != ""
}

// Load reads configuration from PRREADY_* environment variables and, when
// configFile is non-empty, from that file. Environment values win over the file.
// GITHUB_TOKEN is accepted when PRREADY_GITHUB_TOKEN is unset.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("github_token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")

	v.SetDefault("github_token", "")
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("db_path", "prready.db")
	v.SetDefault("cache_ttl", "10m")
	v.SetDefault("rate_limit", "10")
	v.SetDefault("rate_window", "60s")
	v.SetDefault("max_items_per_source", "0")
	v.SetDefault("fetch_timeout", "20s")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", "0")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	p := parser{v: v}
	cfg := &Config{
		GitHubToken:       strings.TrimSpace(v.GetString("github_token")),
		ListenAddr:        v.GetString("listen_addr"),
		DBPath:            v.GetString("db_path"),
		CacheTTL:          p.duration("cache_ttl"),
		RateLimit:         p.integer("rate_limit"),
		RateWindow:        p.duration("rate_window"),
		MaxItemsPerSource: p.integer("max_items_per_source"),
		FetchTimeout:      p.duration("fetch_timeout"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPassword:     v.GetString("redis_password"),
		RedisDB:           p.integer("redis_db"),
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr must not be empty"))
	}
	if c.DBPath == "" && !c.UseRedis() {
		errs = append(errs, errors.New("db_path must not be empty"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must be positive, got %s", c.CacheTTL))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit must be positive, got %d", c.RateLimit))
	}
	if c.RateWindow <= 0 {
		errs = append(errs, fmt.Errorf("rate_window must be positive, got %s", c.RateWindow))
	}
	if c.MaxItemsPerSource < 0 {
		errs = append(errs, fmt.Errorf("max_items_per_source must not be negative, got %d", c.MaxItemsPerSource))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout))
	}
	if c.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("redis_db must not be negative, got %d", c.RedisDB))
	}
	return errors.Join(errs...)
}

// parser collects conversion errors so every bad key is reported at once.
type parser struct {
	v    *viper.Viper
	errs []error
}

func (p *parser) duration(key string) time.Duration {
	raw := strings.TrimSpace(p.v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s has invalid duration %q: %w", key, raw, err))
	}
	return d
}

func (p *parser) integer(key string) int {
	raw := strings.TrimSpace(p.v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s has invalid integer %q: %w", key, raw, err))
	}
	return n
}
