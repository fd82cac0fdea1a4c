package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"studyhall/internal/notify"
)

const DEFAULT_SUPPORT_URL = "https://github.com/studyhall-app/studyhall"
const QR_IMAGE_SIZE = 512

type RBACConfig struct {
	PolicyFile string   `mapstructure:"policy_file"` // Path to the role policy file
	Admins     []string `mapstructure:"admins"`      // List of admin emails
}

type CheckinConfig struct {
	// Allow check-in before the session window opens. Off unless an
	// instructor opts a session in.
	AllowEarly bool `mapstructure:"allow_early"`
	// Rotation period for rotating session passcodes, in seconds.
	RotatingPeriod uint `mapstructure:"rotating_period" validate:"gt=0"`
	// Per-IP check-in rate limit, requests per minute.
	RateLimitPerMin int `mapstructure:"rate_limit_per_min" validate:"gt=0"`
}

type WidgetConfig struct {
	// How long a cached widget snapshot stays fresh, in seconds.
	RefreshInterval uint `mapstructure:"refresh_interval" validate:"gt=0"`
	// Lifetime of issued widget tokens, in days.
	TokenTTLDays uint `mapstructure:"token_ttl_days" validate:"gt=0"`
}

type RemindersConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Cron expression for the reminder sweep.
	Schedule string `mapstructure:"schedule"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Config struct {
	// Secret key for signing tokens. Must be set in production.
	Secret string `mapstructure:"secret"`
	// TTL for signed tokens in seconds
	TokenTTL uint `mapstructure:"token_ttl" validate:"gt=0"`
	// Expiry skew in seconds, to forgive clock drift between devices and server.
	TokenExpirySkew uint   `mapstructure:"token_expiry_skew"`
	NonceStore      string `mapstructure:"nonce_store" validate:"oneof=memory sql redis"`
	LogLevel        string `mapstructure:"log_level"`

	// IANA timezone name used to resolve "today" on the server. Clients
	// resolve their own local day; this only affects server-side sweeps.
	Timezone string `mapstructure:"timezone"`

	RosterFolder string `mapstructure:"roster_folder"` // Folder for course roster CSVs

	RBAC      RBACConfig      `mapstructure:"rbac"`
	Checkin   CheckinConfig   `mapstructure:"checkin"`
	Widget    WidgetConfig    `mapstructure:"widget"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Redis     RedisConfig     `mapstructure:"redis"`

	// User authentication TTL in days.
	UserAuthTTL uint `mapstructure:"user_auth_ttl"`

	BaseURL    string `mapstructure:"base_url"` // Base URL for the application. May be relative, e.g. /studyhall/, or absolute, e.g. https://example.com/studyhall/
	SupportURL string `mapstructure:"support_url"`

	// Comma separated CIDRs allowed to reach the server. Empty allows all.
	AllowedNetworks string `mapstructure:"allowed_networks"`

	Storage Storage `mapstructure:"storage"`

	// Email delivery configuration
	Email notify.SMTPConfig `mapstructure:"email"`
}

var Cfg *Config

// Location resolves the configured timezone. "Local" or an unparseable
// name falls back to the system zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("Invalid timezone in config, using local", "timezone", c.Timezone, "error", err)
		return time.Local
	}
	return loc
}

// Check if running in Docker container by checking for the presence of /.dockerenv file
func runningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

func getConfigPath() string {
	if runningInDocker() {
		return "/app/instance"
	}
	return "./instance"
}

// LoadConfig reads configuration from environment variables and returns a Config struct.
func LoadConfig(configFile ...string) (*Config, error) {
	var cfg Config

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(getConfigPath())
	v.AddConfigPath(".")
	v.SetEnvPrefix("")

	if len(configFile) > 0 {
		for _, path := range configFile {
			v.SetConfigFile(path)
		}
	}

	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	var rosterFolder string
	// If running in Docker, use /app/instance, otherwise use ./instance relative to cwd
	if runningInDocker() {
		rosterFolder = "/app/instance/"
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("unable to get current working directory: %v", err)
		}
		rosterFolder = fmt.Sprintf("%s/instance/", cwd)
	}

	v.SetDefault("ROSTER_FOLDER", rosterFolder) // Default folder for roster CSVs

	// Load configuration from environment variables
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Verify skew is sensible, at max x0.5 of the token TTL
	if cfg.TokenExpirySkew > cfg.TokenTTL/2 {
		maxSkew := cfg.TokenTTL / 2
		slog.Warn("TOKEN_EXPIRY_SKEW must be at most 0.5 * TOKEN_TTL", slog.Int("actual", int(cfg.TokenExpirySkew)), slog.Int("max", int(maxSkew)))
		cfg.TokenExpirySkew = maxSkew
	}

	// Convert relative sqlite path to absolute instance folder
	if cfg.Storage.SQLite != nil {
		if cfg.Storage.SQLite.Path == ":memory:" {
			// In-memory database, do nothing
		} else if !os.IsPathSeparator(cfg.Storage.SQLite.Path[0]) {
			cfg.Storage.SQLite.Path = fmt.Sprintf("%s/%s", getConfigPath(), cfg.Storage.SQLite.Path)
		}
	}

	// Warn if secret is missing - this is a critical security setting for production
	if cfg.Secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("SECRET configuration variable is required in production")
		} else {
			slog.Warn("Secret is not set. Do not use in production.")
		}
	}

	return &cfg, nil
}
