// Package config loads the broker configuration from YAML with environment
// overrides. Env always wins over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig configures one foreign identity provider.
type ProviderConfig struct {
	Enabled      bool     `yaml:"enabled"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
	// URL template overrides; empty keeps the provider's public endpoints.
	LoginURL   string `yaml:"login_url"`
	TokenURL   string `yaml:"token_url"`
	ProfileURL string `yaml:"profile_url"`
}

// ClientSeed registers a client in the memory registry at startup.
type ClientSeed struct {
	ClientID             string   `yaml:"client_id"`
	Secret               string   `yaml:"secret"`
	SecretEncrypted      bool     `yaml:"secret_encrypted"`
	GrantTypes           []string `yaml:"grant_types"`
	Scopes               []string `yaml:"scopes"`
	AutoApproveScopes    []string `yaml:"auto_approve_scopes"`
	RedirectURIs         []string `yaml:"redirect_uris"`
	ResourceIDs          []string `yaml:"resource_ids"`
	AccessTokenValidity  int      `yaml:"access_token_validity"`
	RefreshTokenValidity int      `yaml:"refresh_token_validity"`
	Authorities          []string `yaml:"authorities"`
}

type Config struct {
	App struct {
		// dev | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
		Name     string `yaml:"name"`
	} `yaml:"app"`

	Server struct {
		Addr    string `yaml:"addr"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int32         `yaml:"max_conns"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
		// Clients seeds the memory registry. The postgres driver ignores it.
		Clients []ClientSeed `yaml:"clients"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL time.Duration `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Security struct {
		// base64(32 bytes), decrypts client secrets stored encrypted in the registry
		SecretBoxMasterKey string `yaml:"secretbox_master_key"`
		// HMAC key of the login state JWT
		StateSigningKey string        `yaml:"state_signing_key"`
		StateTTL        time.Duration `yaml:"state_ttl"`
	} `yaml:"security"`

	// Credentials configures the outbound credential token client.
	Credentials struct {
		TokenURL     string   `yaml:"token_url"`
		ClientID     string   `yaml:"client_id"`
		ClientSecret string   `yaml:"client_secret"`
		Username     string   `yaml:"username"`
		Password     string   `yaml:"password"`
		Scopes       []string `yaml:"scopes"`
		// Look the secret up in the client registry instead of client_secret.
		SecretFromRegistry bool          `yaml:"secret_from_registry"`
		Timeout            time.Duration `yaml:"timeout"`
	} `yaml:"credentials"`

	Approvals struct {
		HandleRevocationsAsExpiry bool          `yaml:"handle_revocations_as_expiry"`
		Validity                  time.Duration `yaml:"validity"`
		PurgeInterval             time.Duration `yaml:"purge_interval"`
	} `yaml:"approvals"`

	Providers struct {
		// Callback base; the provider id and /callback are appended when a login
		// request does not carry its own redirect_uri.
		RedirectBaseURL string `yaml:"redirect_base_url"`
		// Further URL prefixes a login request may name as redirect_uri.
		AllowedRedirectURIs []string       `yaml:"allowed_redirect_uris"`
		ExchangeTimeout     time.Duration  `yaml:"exchange_timeout"`
		Facebook            ProviderConfig `yaml:"facebook"`
		GitHub              ProviderConfig `yaml:"github"`
		Google              ProviderConfig `yaml:"google"`
	} `yaml:"providers"`
}

// Load reads path (optional; empty means env only), applies defaults and env
// overrides, then validates.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.Name == "" {
		c.App.Name = "authman"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = 10
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == 0 {
		c.Cache.Memory.DefaultTTL = 10 * time.Minute
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "authman"
	}
	if c.Security.StateTTL == 0 {
		c.Security.StateTTL = 10 * time.Minute
	}
	if c.Credentials.Timeout == 0 {
		c.Credentials.Timeout = 10 * time.Second
	}
	if c.Approvals.Validity == 0 {
		c.Approvals.Validity = 30 * 24 * time.Hour
	}
	if c.Approvals.PurgeInterval == 0 {
		c.Approvals.PurgeInterval = 24 * time.Hour
	}
	if c.Providers.ExchangeTimeout == 0 {
		c.Providers.ExchangeTimeout = 10 * time.Second
	}
	if c.Providers.RedirectBaseURL == "" && c.Server.BaseURL != "" {
		c.Providers.RedirectBaseURL = strings.TrimRight(c.Server.BaseURL, "/") + "/login"
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported (memory|postgres)", c.Storage.Driver))
	}
	for i, cl := range c.Storage.Clients {
		if strings.TrimSpace(cl.ClientID) == "" {
			errs = append(errs, fmt.Errorf("storage.clients[%d].client_id is required", i))
		}
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q not supported (memory|redis)", c.Cache.Kind))
	}
	if c.IsProd() && len(c.Security.StateSigningKey) < 32 {
		errs = append(errs, errors.New("security.state_signing_key must be at least 32 bytes in prod"))
	}
	if c.Credentials.TokenURL != "" && c.Credentials.ClientID == "" {
		errs = append(errs, errors.New("credentials.client_id is required when credentials.token_url is set"))
	}
	if (c.Credentials.Username == "") != (c.Credentials.Password == "") {
		errs = append(errs, errors.New("credentials.username and credentials.password must be set together"))
	}
	for name, p := range map[string]ProviderConfig{
		"facebook": c.Providers.Facebook,
		"github":   c.Providers.GitHub,
		"google":   c.Providers.Google,
	} {
		if p.Enabled && p.ClientID == "" {
			errs = append(errs, fmt.Errorf("providers.%s.client_id is required when enabled", name))
		}
	}
	return errors.Join(errs...)
}

// IsProd reports whether app.env is prod.
func (c *Config) IsProd() bool {
	return strings.EqualFold(c.App.Env, "prod")
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

func setStr(dst *string, key string) {
	if v, ok := getEnvStr(key); ok {
		*dst = v
	}
}

func setDur(dst *time.Duration, key string) {
	if v, ok := getEnvDur(key); ok {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := getEnvBool(key); ok {
		*dst = v
	}
}

func setCSV(dst *[]string, key string) {
	if v, ok := getEnvCSV(key); ok {
		*dst = v
	}
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	setStr(&c.App.LogLevel, "LOG_LEVEL")

	setStr(&c.Server.Addr, "SERVER_ADDR")
	setStr(&c.Server.BaseURL, "SERVER_BASE_URL")

	setStr(&c.Storage.Driver, "STORAGE_DRIVER")
	setStr(&c.Storage.DSN, "STORAGE_DSN")
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = int32(v)
	}

	setStr(&c.Cache.Kind, "CACHE_KIND")
	setStr(&c.Cache.Redis.Addr, "REDIS_ADDR")
	setStr(&c.Cache.Redis.Password, "REDIS_PASSWORD")
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	setStr(&c.Cache.Redis.Prefix, "REDIS_PREFIX")

	setStr(&c.Security.SecretBoxMasterKey, "SECRETBOX_MASTER_KEY")
	setStr(&c.Security.StateSigningKey, "STATE_SIGNING_KEY")
	setDur(&c.Security.StateTTL, "STATE_TTL")

	setStr(&c.Credentials.TokenURL, "CREDENTIALS_TOKEN_URL")
	setStr(&c.Credentials.ClientID, "CREDENTIALS_CLIENT_ID")
	setStr(&c.Credentials.ClientSecret, "CREDENTIALS_CLIENT_SECRET")
	setStr(&c.Credentials.Username, "CREDENTIALS_USERNAME")
	setStr(&c.Credentials.Password, "CREDENTIALS_PASSWORD")
	setCSV(&c.Credentials.Scopes, "CREDENTIALS_SCOPES")
	setBool(&c.Credentials.SecretFromRegistry, "CREDENTIALS_SECRET_FROM_REGISTRY")
	setDur(&c.Credentials.Timeout, "CREDENTIALS_TIMEOUT")

	setBool(&c.Approvals.HandleRevocationsAsExpiry, "APPROVALS_HANDLE_REVOCATIONS_AS_EXPIRY")
	setDur(&c.Approvals.Validity, "APPROVALS_VALIDITY")
	setDur(&c.Approvals.PurgeInterval, "APPROVALS_PURGE_INTERVAL")

	setStr(&c.Providers.RedirectBaseURL, "PROVIDERS_REDIRECT_BASE_URL")
	setCSV(&c.Providers.AllowedRedirectURIs, "PROVIDERS_ALLOWED_REDIRECT_URIS")
	applyProviderEnv(&c.Providers.Facebook, "FACEBOOK")
	applyProviderEnv(&c.Providers.GitHub, "GITHUB")
	applyProviderEnv(&c.Providers.Google, "GOOGLE")
}

func applyProviderEnv(p *ProviderConfig, prefix string) {
	setBool(&p.Enabled, prefix+"_ENABLED")
	setStr(&p.ClientID, prefix+"_CLIENT_ID")
	setStr(&p.ClientSecret, prefix+"_CLIENT_SECRET")
	setCSV(&p.Scopes, prefix+"_SCOPES")
}
