package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Credential sources, in order of precedence
const (
	SourceEnv      = "env"
	SourceKeychain = "keychain"
	SourceConfig   = "config"
	SourceNone     = "none"
)

// Config holds all configuration settings
type Config struct {
	// Tracker connection
	Tracker TrackerConfig `mapstructure:"tracker" yaml:"tracker"`

	// Pay calendar
	Pay PayConfig `mapstructure:"pay" yaml:"pay"`

	// Work-log fan-out
	Fetch FetchConfig `mapstructure:"fetch" yaml:"fetch"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// File is the config file that was read, empty when none was found
	File string `mapstructure:"-" yaml:"-"`
}

type TrackerConfig struct {
	Scheme     string `mapstructure:"scheme" yaml:"scheme"`
	Hostname   string `mapstructure:"hostname" yaml:"hostname"`
	Port       int    `mapstructure:"port" yaml:"port"` // 0 keeps the scheme default
	Username   string `mapstructure:"username" yaml:"username"`
	Password   string `mapstructure:"password" yaml:"password"`
	Token      string `mapstructure:"token" yaml:"token"`
	APIVersion string `mapstructure:"api_version" yaml:"api_version"`

	TokenSource    string `mapstructure:"-" yaml:"-"`
	PasswordSource string `mapstructure:"-" yaml:"-"`
}

type PayConfig struct {
	Day         int     `mapstructure:"day" yaml:"day"` // day of month, 29-31 roll over in short months
	HoursPerDay float64 `mapstructure:"hours_per_day" yaml:"hours_per_day"`
}

type FetchConfig struct {
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second, 0 disables
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	FailFast       bool          `mapstructure:"fail_fast" yaml:"fail_fast"`
	MaxResults     int           `mapstructure:"max_results" yaml:"max_results"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
	File  string `mapstructure:"file" yaml:"file"`   // empty logs to stderr
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			Scheme:     "https",
			APIVersion: "2",
		},
		Pay: PayConfig{
			Day:         1,
			HoursPerDay: 8,
		},
		Fetch: FetchConfig{
			Concurrency:    8,
			RateLimit:      10,
			RequestTimeout: 30 * time.Second,
			FailFast:       true,
			MaxResults:     1000000,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load loads configuration from path, or from the standard locations when
// path is empty. A missing file in the standard locations is not an error.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()

	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix("PAYCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".paycheck")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".paycheck"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := applyLegacyKeys(v); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	applyEnvOverrides(cfg, NewKeyringManager())

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("tracker.scheme", cfg.Tracker.Scheme)
	v.SetDefault("tracker.hostname", cfg.Tracker.Hostname)
	v.SetDefault("tracker.port", cfg.Tracker.Port)
	v.SetDefault("tracker.username", cfg.Tracker.Username)
	v.SetDefault("tracker.password", cfg.Tracker.Password)
	v.SetDefault("tracker.token", cfg.Tracker.Token)
	v.SetDefault("tracker.api_version", cfg.Tracker.APIVersion)

	v.SetDefault("pay.day", cfg.Pay.Day)
	v.SetDefault("pay.hours_per_day", cfg.Pay.HoursPerDay)

	v.SetDefault("fetch.concurrency", cfg.Fetch.Concurrency)
	v.SetDefault("fetch.rate_limit", cfg.Fetch.RateLimit)
	v.SetDefault("fetch.request_timeout", cfg.Fetch.RequestTimeout)
	v.SetDefault("fetch.fail_fast", cfg.Fetch.FailFast)
	v.SetDefault("fetch.max_results", cfg.Fetch.MaxResults)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.json", cfg.Log.JSON)
}

// applyLegacyKeys maps the flat config.json layout used by earlier versions:
//
//	{"hostname": "...", "port": 443, "auth": "user:pass", "payDate": 15, "fullTimeHoursPerDay": 8}
func applyLegacyKeys(v *viper.Viper) error {
	if !v.InConfig("hostname") && !v.InConfig("paydate") && !v.InConfig("auth") {
		return nil
	}

	legacy := map[string]string{
		"hostname":            "tracker.hostname",
		"port":                "tracker.port",
		"paydate":             "pay.day",
		"fulltimehoursperday": "pay.hours_per_day",
	}
	for from, to := range legacy {
		if v.InConfig(from) {
			v.SetDefault(to, v.Get(from))
		}
	}

	if v.InConfig("auth") {
		user, pass, ok := strings.Cut(v.GetString("auth"), ":")
		if !ok {
			return fmt.Errorf("legacy auth must be \"user:password\"")
		}
		v.SetDefault("tracker.username", user)
		v.SetDefault("tracker.password", pass)
	}
	return nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".paycheck", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// secretReader is the part of KeyringManager used while loading
type secretReader interface {
	IsAvailable() bool
	GetTrackerToken(host string) (string, error)
	GetTrackerPassword(host string) (string, error)
}

// applyEnvOverrides resolves tracker credentials.
// Precedence: 1. Env var (highest) 2. Keychain 3. Config file (lowest)
func applyEnvOverrides(cfg *Config, secrets secretReader) {
	cfg.Tracker.TokenSource = sourceOf(cfg.Tracker.Token)
	cfg.Tracker.PasswordSource = sourceOf(cfg.Tracker.Password)

	if user := os.Getenv("TRACKER_USERNAME"); user != "" {
		cfg.Tracker.Username = user
	}

	token := os.Getenv("TRACKER_TOKEN")
	password := os.Getenv("TRACKER_PASSWORD")
	if token != "" {
		cfg.Tracker.Token = token
		cfg.Tracker.TokenSource = SourceEnv
	}
	if password != "" {
		cfg.Tracker.Password = password
		cfg.Tracker.PasswordSource = SourceEnv
	}

	if (token != "" && password != "") || cfg.Tracker.Hostname == "" || !secrets.IsAvailable() {
		return
	}

	if token == "" {
		if v, err := secrets.GetTrackerToken(cfg.Tracker.Hostname); err == nil && v != "" {
			cfg.Tracker.Token = v
			cfg.Tracker.TokenSource = SourceKeychain
		}
	}
	if password == "" {
		if v, err := secrets.GetTrackerPassword(cfg.Tracker.Hostname); err == nil && v != "" {
			cfg.Tracker.Password = v
			cfg.Tracker.PasswordSource = SourceKeychain
		}
	}
}

func sourceOf(value string) string {
	if value != "" {
		return SourceConfig
	}
	return SourceNone
}

// Redacted returns a copy safe for printing
func (c *Config) Redacted() *Config {
	out := *c
	out.Tracker.Token = MaskSecret(c.Tracker.Token)
	out.Tracker.Password = MaskSecret(c.Tracker.Password)
	return &out
}
