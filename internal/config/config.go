// Package config loads the service configuration from a YAML file with
// environment variable overrides on top. Env wins over file, file wins
// over defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/janus/internal/alert"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL is the public origin of this service; the provider
		// callback URL is derived from it.
		BaseURL      string        `yaml:"base_url"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	Storage struct {
		DSN          string `yaml:"dsn"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"storage"`

	Cache struct {
		Driver     string        `yaml:"driver"` // memory | redis
		DefaultTTL time.Duration `yaml:"default_ttl"`
		Redis      struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Security struct {
		// SecretBoxMasterKey is base64(32 bytes); it encrypts PKCE
		// verifiers at rest and decrypts stored provider secrets.
		SecretBoxMasterKey string `yaml:"secretbox_master_key"`
	} `yaml:"security"`

	JWT struct {
		Issuer    string        `yaml:"issuer"`
		Audience  string        `yaml:"audience"`
		KeyID     string        `yaml:"key_id"`
		AccessTTL time.Duration `yaml:"access_ttl"`
		// SigningKey is base64(ed25519 seed or private key).
		SigningKey string `yaml:"signing_key"`
	} `yaml:"jwt"`

	Auth struct {
		RefreshTTL     time.Duration `yaml:"refresh_ttl"`
		SessionCeiling int           `yaml:"session_ceiling"`
		// RevokeChainOnReplay defaults to true; an explicit false in
		// YAML or env turns it off.
		RevokeChainOnReplay *bool         `yaml:"revoke_chain_on_replay"`
		StateTTL            time.Duration `yaml:"state_ttl"`
		CodeTTL             time.Duration `yaml:"code_ttl"`
	} `yaml:"auth"`

	Sweep struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"sweep"`

	SMTP alert.SMTPConfig `yaml:"smtp"`
}

// Load reads path (optional), applies defaults and env overrides.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Storage.MaxOpenConns <= 0 {
		c.Storage.MaxOpenConns = 10
	}
	if c.Storage.MaxIdleConns <= 0 {
		c.Storage.MaxIdleConns = 2
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = 30 * time.Second
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = "localhost:6379"
	}
	if c.JWT.AccessTTL <= 0 {
		c.JWT.AccessTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTTL <= 0 {
		c.Auth.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.Auth.SessionCeiling <= 0 {
		c.Auth.SessionCeiling = 5
	}
	if c.Auth.StateTTL <= 0 {
		c.Auth.StateTTL = 10 * time.Minute
	}
	if c.Auth.CodeTTL <= 0 {
		c.Auth.CodeTTL = 60 * time.Second
	}
	if c.Sweep.Interval <= 0 {
		c.Sweep.Interval = 5 * time.Minute
	}
	if c.SMTP.TLSMode == "" {
		c.SMTP.TLSMode = "auto"
	}
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvDur("SERVER_READ_TIMEOUT"); ok {
		c.Server.ReadTimeout = v
	}
	if v, ok := getEnvDur("SERVER_WRITE_TIMEOUT"); ok {
		c.Server.WriteTimeout = v
	}

	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.MaxIdleConns = v
	}

	if v, ok := getEnvStr("CACHE_DRIVER"); ok {
		c.Cache.Driver = v
	}
	if v, ok := getEnvDur("CACHE_DEFAULT_TTL"); ok {
		c.Cache.DefaultTTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}

	if v, ok := getEnvStr("SECRETBOX_MASTER_KEY"); ok {
		c.Security.SecretBoxMasterKey = v
	}

	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_AUDIENCE"); ok {
		c.JWT.Audience = v
	}
	if v, ok := getEnvStr("JWT_KEY_ID"); ok {
		c.JWT.KeyID = v
	}
	if v, ok := getEnvDur("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvStr("JWT_SIGNING_KEY"); ok {
		c.JWT.SigningKey = v
	}

	if v, ok := getEnvDur("AUTH_REFRESH_TTL"); ok {
		c.Auth.RefreshTTL = v
	}
	if v, ok := getEnvInt("AUTH_SESSION_CEILING"); ok {
		c.Auth.SessionCeiling = v
	}
	if v, ok := getEnvBool("AUTH_REVOKE_CHAIN_ON_REPLAY"); ok {
		c.Auth.RevokeChainOnReplay = &v
	}
	if v, ok := getEnvDur("AUTH_STATE_TTL"); ok {
		c.Auth.StateTTL = v
	}
	if v, ok := getEnvDur("AUTH_CODE_TTL"); ok {
		c.Auth.CodeTTL = v
	}

	if v, ok := getEnvDur("SWEEP_INTERVAL"); ok {
		c.Sweep.Interval = v
	}

	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TO"); ok {
		c.SMTP.To = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_TLS_MODE"); ok {
		c.SMTP.TLSMode = strings.ToLower(v)
	}
}

func (c *Config) validate() error {
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache driver %q", c.Cache.Driver)
	}
	return nil
}

// RevokeChainOnReplay resolves the tri-state flag; unset means true.
func (c *Config) RevokeChainOnReplay() bool {
	if c.Auth.RevokeChainOnReplay == nil {
		return true
	}
	return *c.Auth.RevokeChainOnReplay
}

func getEnvStr(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(s); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d, true
		}
	}
	return 0, false
}
