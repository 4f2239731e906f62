package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	LinkedIn LinkedInConfig `mapstructure:"linkedin" yaml:"linkedin"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Mailbox  MailboxConfig  `mapstructure:"mailbox" yaml:"mailbox"`
	Timing   TimingConfig   `mapstructure:"timing" yaml:"timing"`
	Limits   LimitsConfig   `mapstructure:"limits" yaml:"limits"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// LinkedInConfig contains site endpoints and account credentials
type LinkedInConfig struct {
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"password"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	LoginURL string `mapstructure:"login_url" yaml:"login_url"`
	ProbeURL string `mapstructure:"probe_url" yaml:"probe_url"`
}

// BrowserConfig contains browser automation settings
type BrowserConfig struct {
	Headless       bool   `mapstructure:"headless" yaml:"headless"`
	ViewportWidth  int    `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int    `mapstructure:"viewport_height" yaml:"viewport_height"`
	UserAgent      string `mapstructure:"user_agent" yaml:"user_agent"`
	ExecutablePath string `mapstructure:"executable_path" yaml:"executable_path"`
}

// MailboxConfig contains IMAP settings for out-of-band verification codes
type MailboxConfig struct {
	Address       string `mapstructure:"address" yaml:"address"`
	Email         string `mapstructure:"email" yaml:"email"`
	AppPassword   string `mapstructure:"app_password" yaml:"app_password"`
	SenderFilter  string `mapstructure:"sender_filter" yaml:"sender_filter"`
	SubjectMarker string `mapstructure:"subject_marker" yaml:"subject_marker"`
}

// TimingConfig contains settle delays and wait bounds. These defaults are
// empirical; tune them against the target site's observed latency.
type TimingConfig struct {
	FieldWait    time.Duration `mapstructure:"field_wait" yaml:"field_wait"`
	SettleDelay  time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	CodeTimeout  time.Duration `mapstructure:"code_timeout" yaml:"code_timeout"`
}

// LimitsConfig contains rate limiting settings
type LimitsConfig struct {
	DailyLogins  int           `mapstructure:"daily_logins" yaml:"daily_logins"`
	DailyScrapes int           `mapstructure:"daily_scrapes" yaml:"daily_scrapes"`
	MinDelay     time.Duration `mapstructure:"min_delay" yaml:"min_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

// StorageConfig contains session and database paths
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	SessionDir   string `mapstructure:"session_dir" yaml:"session_dir"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.Reset()
	setDefaults()

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SENTINEL")

	if err := viper.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if notFound || os.IsNotExist(err) {
			if err := createDefaultConfig(configPath); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Durations come through viper directly to sidestep unmarshal quirks
	config.Timing.FieldWait = viper.GetDuration("timing.field_wait")
	config.Timing.SettleDelay = viper.GetDuration("timing.settle_delay")
	config.Timing.PollInterval = viper.GetDuration("timing.poll_interval")
	config.Timing.CodeTimeout = viper.GetDuration("timing.code_timeout")
	config.Limits.MinDelay = viper.GetDuration("limits.min_delay")
	config.Limits.MaxDelay = viper.GetDuration("limits.max_delay")

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("linkedin.base_url", "https://www.linkedin.com")
	viper.SetDefault("linkedin.login_url", "https://www.linkedin.com/login")
	viper.SetDefault("linkedin.probe_url", "https://www.linkedin.com/feed/")

	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.viewport_width", 1920)
	viper.SetDefault("browser.viewport_height", 1080)
	viper.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	viper.SetDefault("mailbox.address", "imap.gmail.com:993")
	viper.SetDefault("mailbox.sender_filter", "linkedin.com")
	viper.SetDefault("mailbox.subject_marker", "verification")

	viper.SetDefault("timing.field_wait", "10s")
	viper.SetDefault("timing.settle_delay", "5s")
	viper.SetDefault("timing.poll_interval", "3s")
	viper.SetDefault("timing.code_timeout", "60s")

	viper.SetDefault("limits.daily_logins", 20)
	viper.SetDefault("limits.daily_scrapes", 100)
	viper.SetDefault("limits.min_delay", "500ms")
	viper.SetDefault("limits.max_delay", "3s")

	viper.SetDefault("storage.database_path", "./data/sentinel.db")
	viper.SetDefault("storage.session_dir", "./sessions")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stderr")
}

// createDefaultConfig writes a configuration file populated from the viper
// defaults, so every value the generated file carries survives validation on
// the next load
func createDefaultConfig(configPath string) error {
	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}

// overrideFromEnv overrides configuration with environment variables
func overrideFromEnv() {
	if email := os.Getenv("LINKEDIN_EMAIL"); email != "" {
		viper.Set("linkedin.email", email)
	}
	if password := os.Getenv("LINKEDIN_PASSWORD"); password != "" {
		viper.Set("linkedin.password", password)
	}
	if email := os.Getenv("GMAIL_EMAIL"); email != "" {
		viper.Set("mailbox.email", email)
	}
	if password := os.Getenv("GMAIL_APP_PASSWORD"); password != "" {
		viper.Set("mailbox.app_password", password)
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.LinkedIn.LoginURL == "" {
		return fmt.Errorf("linkedin login url is required")
	}
	if config.Timing.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if config.Limits.DailyLogins <= 0 {
		return fmt.Errorf("daily logins must be positive")
	}
	return nil
}
