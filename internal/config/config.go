// Package config loads the supportd configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Channel name constants, used as the channel discriminator on escalations.
const (
	ChannelWeb    = "web"
	ChannelMatrix = "matrix"
	ChannelBisq2  = "bisq2"
)

// Config is the root supportd configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Log         LogConfig         `yaml:"log"`
	Escalation  EscalationConfig  `yaml:"escalation"`
	Delivery    DeliveryConfig    `yaml:"delivery"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Matrix      MatrixConfig      `yaml:"matrix"`
	Bisq2       Bisq2Config       `yaml:"bisq2"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DatabaseConfig configures the sqlite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// EscalationConfig holds the lifecycle policy knobs.
type EscalationConfig struct {
	// ClaimTTLMinutes is how long an in-review claim stays valid without a response.
	ClaimTTLMinutes int `yaml:"claim_ttl_minutes"`
	// AutoCloseHours is the age after which an unresponded escalation is closed.
	AutoCloseHours int `yaml:"auto_close_hours"`
	// RetentionDays is the purge window for terminal escalations.
	RetentionDays int `yaml:"retention_days"`
	// ConfidenceThreshold is the score below which an AI answer escalates.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	// EscalateOnNegativeFeedback escalates confident answers the user rejected.
	EscalateOnNegativeFeedback bool `yaml:"escalate_on_negative_feedback"`
	// SupportHandle is the staff handle mentioned in outbound notifications.
	SupportHandle string `yaml:"support_handle"`
}

// DeliveryConfig holds the outbound notification policy knobs.
type DeliveryConfig struct {
	// MaxRetries is the delivery attempt budget per notification.
	MaxRetries int `yaml:"max_retries"`
	// BackoffSeconds is the base delay between delivery attempts.
	BackoffSeconds int `yaml:"backoff_seconds"`
	// TimeoutSeconds bounds a single delivery attempt.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// MaintenanceConfig configures the background hygiene loop.
type MaintenanceConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
}

// MatrixConfig configures the Matrix channel adapter.
type MatrixConfig struct {
	HomeserverURL string `yaml:"homeserver_url"`
	AccessToken   string `yaml:"access_token"`
}

// Bisq2Config configures the Bisq2 channel adapter.
type Bisq2Config struct {
	APIURL string `yaml:"api_url"`
	// RealtimeEnabled gates the websocket transport. Default false: the
	// websocket contract is unconfirmed against the Bisq2 API, so delivery
	// falls back to the HTTP path unless explicitly enabled.
	RealtimeEnabled bool `yaml:"realtime_enabled"`
}

// Default returns the configuration defaults applied before file values.
func Default() *Config {
	return &Config{
		HTTP:     HTTPConfig{ListenAddr: ":8080"},
		Database: DatabaseConfig{Path: ""},
		Log:      LogConfig{Level: "info", Format: "json"},
		Escalation: EscalationConfig{
			ClaimTTLMinutes:            30,
			AutoCloseHours:             72,
			RetentionDays:              90,
			ConfidenceThreshold:        0.7,
			EscalateOnNegativeFeedback: true,
			SupportHandle:              "support",
		},
		Delivery: DeliveryConfig{
			MaxRetries:     3,
			BackoffSeconds: 2,
			TimeoutSeconds: 10,
		},
		Maintenance: MaintenanceConfig{IntervalMinutes: 5},
		Bisq2:       Bisq2Config{RealtimeEnabled: false},
	}
}

// Load reads the config file at path, applying defaults for absent values.
// An empty path consults SUPPORTD_CONFIG, then falls back to defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SUPPORTD_CONFIG")
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the policy knobs for values that would break the lifecycle.
func (c *Config) Validate() error {
	if c.Escalation.ClaimTTLMinutes <= 0 {
		return fmt.Errorf("claim_ttl_minutes must be positive (got %d)", c.Escalation.ClaimTTLMinutes)
	}
	if c.Escalation.AutoCloseHours <= 0 {
		return fmt.Errorf("auto_close_hours must be positive (got %d)", c.Escalation.AutoCloseHours)
	}
	if c.Escalation.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be positive (got %d)", c.Escalation.RetentionDays)
	}
	if c.Escalation.ConfidenceThreshold < 0 || c.Escalation.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1] (got %f)", c.Escalation.ConfidenceThreshold)
	}
	if c.Delivery.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1 (got %d)", c.Delivery.MaxRetries)
	}
	return nil
}

// ClaimTTL returns the claim expiry as a duration.
func (c *Config) ClaimTTL() time.Duration {
	return time.Duration(c.Escalation.ClaimTTLMinutes) * time.Minute
}

// AutoCloseAge returns the auto-close deadline as a duration.
func (c *Config) AutoCloseAge() time.Duration {
	return time.Duration(c.Escalation.AutoCloseHours) * time.Hour
}

// RetentionAge returns the purge window as a duration.
func (c *Config) RetentionAge() time.Duration {
	return time.Duration(c.Escalation.RetentionDays) * 24 * time.Hour
}

// DatabasePath resolves the sqlite file location, defaulting under the
// user's home directory when unset.
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".supportd", "supportd.db"), nil
}
