package authflow

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gotg/authflow/credstore"
	"gopkg.in/yaml.v3"
)

// DefaultRedirectURL is where verification links land when nothing else is
// configured.
const DefaultRedirectURL = "com.gotg.mobile://auth/callback"

const (
	envRedirectURL       = "AUTHFLOW_REDIRECT_URL"
	envPublicRedirectURL = "EXPO_PUBLIC_AUTH_REDIRECT_URL"
	envStoreBackend      = "AUTHFLOW_STORE_BACKEND"
	envStorePath         = "AUTHFLOW_STORE_PATH"
	envRedisURL          = "REDIS_URL"
	envLogLevel          = "LOG_LEVEL"
	envBridgeAddr        = "AUTHFLOW_BRIDGE_ADDR"
	envRequireVerify     = "AUTHFLOW_REQUIRE_VERIFICATION"
)

// Config defines a public type used by authflow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Validation      ValidationConfig      `yaml:"validation"`
	Verification    VerificationConfig    `yaml:"verification"`
	CredentialStore CredentialStoreConfig `yaml:"credential_store"`
	Notifications   NotificationConfig    `yaml:"notifications"`
	Metrics         MetricsConfig         `yaml:"metrics"`
	Logging         LoggingConfig         `yaml:"logging"`
	Gateway         GatewayConfig         `yaml:"gateway"`
	Bridge          BridgeConfig          `yaml:"bridge"`
}

/*
====================================
VALIDATION CONFIG
====================================
*/

// ValidationConfig holds the form length minimums.
type ValidationConfig struct {
	SignInMinPassword int `yaml:"sign_in_min_password"`
	SignUpMinPassword int `yaml:"sign_up_min_password"`
	MinFullName       int `yaml:"min_full_name"`
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig holds the email verification settings.
type VerificationConfig struct {
	RedirectURL string `yaml:"redirect_url"`
}

/*
====================================
CREDENTIAL STORE CONFIG
====================================
*/

// CredentialStoreConfig selects where the pending verification email lives.
type CredentialStoreConfig struct {
	Backend     string `yaml:"backend"`
	FilePath    string `yaml:"file_path"`
	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// Options converts the config to credstore options.
func (c CredentialStoreConfig) Options() credstore.Options {
	return credstore.Options{
		Backend:     credstore.Backend(c.Backend),
		FilePath:    c.FilePath,
		RedisURL:    c.RedisURL,
		RedisPrefix: c.RedisPrefix,
	}
}

/*
====================================
NOTIFICATION CONFIG
====================================
*/

// NotificationConfig controls notification buffering and display hints.
type NotificationConfig struct {
	BufferSize    int           `yaml:"buffer_size"`
	DropIfFull    bool          `yaml:"drop_if_full"`
	Placement     string        `yaml:"placement"`
	BriefDuration time.Duration `yaml:"brief_duration"`
	InfoDuration  time.Duration `yaml:"info_duration"`
	Duration      time.Duration `yaml:"duration"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by authflow APIs.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LoggingConfig sets the slog level name ("debug", "info", "warn", "error").
type LoggingConfig struct {
	Level string `yaml:"level"`
}

/*
====================================
GATEWAY CONFIG
====================================
*/

// GatewayConfig configures the in-process gateway used by the bridge.
type GatewayConfig struct {
	RequireVerification bool            `yaml:"require_verification"`
	AccessTTL           time.Duration   `yaml:"access_ttl"`
	SigningSecret       string          `yaml:"signing_secret"`
	Issuer              string          `yaml:"issuer"`
	RateLimit           RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a fixed-window attempt budget. MaxAttempts 0 disables it.
type RateLimitConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Window      time.Duration `yaml:"window"`
}

// BridgeConfig configures the local HTTP bridge.
type BridgeConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration the mobile client ships with.
func DefaultConfig() Config {
	return Config{
		Validation: ValidationConfig{
			SignInMinPassword: 6,
			SignUpMinPassword: 8,
			MinFullName:       2,
		},
		Verification: VerificationConfig{
			RedirectURL: DefaultRedirectURL,
		},
		CredentialStore: CredentialStoreConfig{
			Backend:     string(credstore.BackendMemory),
			RedisPrefix: "acs",
		},
		Notifications: NotificationConfig{
			BufferSize:    64,
			DropIfFull:    true,
			Placement:     "top",
			BriefDuration: 1500 * time.Millisecond,
			InfoDuration:  2 * time.Second,
			Duration:      3 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Gateway: GatewayConfig{
			RequireVerification: true,
			AccessTTL:           time.Hour,
			Issuer:              "authflow-memory",
			RateLimit: RateLimitConfig{
				MaxAttempts: 5,
				Window:      time.Minute,
			},
		},
		Bridge: BridgeConfig{
			Addr:            "127.0.0.1:8787",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

/*
====================================
LOADING
====================================
*/

// LoadConfig reads a YAML file over DefaultConfig. Fields absent from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. AUTHFLOW_REDIRECT_URL
// takes precedence over EXPO_PUBLIC_AUTH_REDIRECT_URL; an empty redirect URL
// falls back to DefaultRedirectURL.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := firstNonEmpty(getenv(envRedirectURL), getenv(envPublicRedirectURL)); v != "" {
		c.Verification.RedirectURL = v
	}
	if c.Verification.RedirectURL == "" {
		c.Verification.RedirectURL = DefaultRedirectURL
	}
	if v := getenv(envStoreBackend); v != "" {
		c.CredentialStore.Backend = strings.ToLower(v)
	}
	if v := getenv(envStorePath); v != "" {
		c.CredentialStore.FilePath = v
	}
	if v := getenv(envRedisURL); v != "" {
		c.CredentialStore.RedisURL = v
	}
	if v := getenv(envLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := getenv(envBridgeAddr); v != "" {
		c.Bridge.Addr = v
	}
	if v := getenv(envRequireVerify); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", envRequireVerify, err)
		}
		c.Gateway.RequireVerification = b
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Validation.SignInMinPassword < 1 {
		return errors.New("Validation SignInMinPassword must be >= 1")
	}
	if c.Validation.SignUpMinPassword < c.Validation.SignInMinPassword {
		return errors.New("Validation SignUpMinPassword must be >= SignInMinPassword")
	}
	if c.Validation.MinFullName < 1 {
		return errors.New("Validation MinFullName must be >= 1")
	}

	if c.Verification.RedirectURL == "" {
		return errors.New("Verification RedirectURL must be set")
	}
	u, err := url.Parse(c.Verification.RedirectURL)
	if err != nil || u.Scheme == "" {
		return errors.New("Verification RedirectURL must be an absolute URL")
	}

	switch credstore.Backend(c.CredentialStore.Backend) {
	case "", credstore.BackendMemory:
	case credstore.BackendFile:
		if c.CredentialStore.FilePath == "" {
			return errors.New("CredentialStore FilePath required for file backend")
		}
	case credstore.BackendRedis:
		if c.CredentialStore.RedisURL == "" {
			return errors.New("CredentialStore RedisURL required for redis backend")
		}
	default:
		return fmt.Errorf("unsupported CredentialStore backend %q", c.CredentialStore.Backend)
	}

	if c.Notifications.BufferSize <= 0 {
		return errors.New("Notifications BufferSize must be > 0")
	}
	if c.Notifications.Duration <= 0 || c.Notifications.BriefDuration <= 0 || c.Notifications.InfoDuration <= 0 {
		return errors.New("Notifications durations must be > 0")
	}
	switch c.Notifications.Placement {
	case "top", "bottom":
	default:
		return errors.New("Notifications Placement must be top or bottom")
	}

	if c.Gateway.AccessTTL < 0 {
		return errors.New("Gateway AccessTTL must be >= 0")
	}
	if c.Gateway.SigningSecret != "" && len(c.Gateway.SigningSecret) < 32 {
		return errors.New("Gateway SigningSecret must be at least 32 bytes")
	}
	if c.Gateway.RateLimit.MaxAttempts < 0 {
		return errors.New("Gateway RateLimit MaxAttempts must be >= 0")
	}
	if c.Gateway.RateLimit.MaxAttempts > 0 && c.Gateway.RateLimit.Window <= 0 {
		return errors.New("Gateway RateLimit Window must be > 0 when MaxAttempts is set")
	}
	return nil
}
