// Package config handles configuration for the portal.
//
// Values are resolved in order: defaults, YAML file, environment. The
// environment names match the ones the hosting platform injects as
// application settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/vmportal/internal/batch"
)

// Config is the root configuration structure.
type Config struct {
	Azure      AzureConfig      `yaml:"azure"`
	Automation AutomationConfig `yaml:"automation"`
	Insights   InsightsConfig   `yaml:"insights"`
	Server     ServerConfig     `yaml:"server"`
	OTEL       OTELConfig       `yaml:"otel"`
	Log        LogConfig        `yaml:"log"`
	Batch      BatchConfig      `yaml:"batch"`
}

// AzureConfig holds credentials and the VM target.
type AzureConfig struct {
	TenantID         string `yaml:"tenant_id"`
	ClientID         string `yaml:"client_id"`
	ClientSecret     string `yaml:"client_secret"`
	VMSubscriptionID string `yaml:"vm_subscription_id"`
	VMResourceGroup  string `yaml:"vm_resource_group"`
}

// AutomationConfig identifies the Automation account owning schedules and runbooks.
type AutomationConfig struct {
	SubscriptionID  string   `yaml:"subscription_id"`
	ResourceGroup   string   `yaml:"resource_group"`
	AccountName     string   `yaml:"account_name"`
	AllowedRunbooks []string `yaml:"allowed_runbooks"`
}

// InsightsConfig points at the Application Insights component queried for the audit log.
type InsightsConfig struct {
	ResourceID string `yaml:"resource_id"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Addr               string        `yaml:"addr"`
	MetricsAddr        string        `yaml:"metrics_addr"`
	ShutdownTimeoutStr string        `yaml:"shutdown_timeout"`
	ShutdownTimeout    time.Duration `yaml:"-"`

	// RateLimit is the sustained requests per second allowed per caller on
	// /api routes. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Insecure    bool          `yaml:"insecure"`
	ServiceName string        `yaml:"service_name"`
	Traces      TracesConfig  `yaml:"traces"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BatchConfig holds batch operation limits.
type BatchConfig struct {
	MaxSize int `yaml:"max_size"`
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads an optional YAML file and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("AZURE_TENANT_ID", &cfg.Azure.TenantID)
	str("ENTRA_CLIENT_ID", &cfg.Azure.ClientID)
	str("ENTRA_CLIENT_SECRET", &cfg.Azure.ClientSecret)
	str("VM_SUBSCRIPTION_ID", &cfg.Azure.VMSubscriptionID)
	str("VM_RESOURCE_GROUP", &cfg.Azure.VMResourceGroup)
	str("AUTOMATION_SUBSCRIPTION_ID", &cfg.Automation.SubscriptionID)
	str("AUTOMATION_RESOURCE_GROUP", &cfg.Automation.ResourceGroup)
	str("AUTOMATION_ACCOUNT_NAME", &cfg.Automation.AccountName)
	str("APPINSIGHTS_RESOURCE_ID", &cfg.Insights.ResourceID)
	str("PORTAL_ADDR", &cfg.Server.Addr)
	str("PORTAL_METRICS_ADDR", &cfg.Server.MetricsAddr)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.OTEL.Endpoint)
	str("OTEL_SERVICE_NAME", &cfg.OTEL.ServiceName)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if v, ok := lookup("ALLOWED_RUNBOOKS"); ok && v != "" {
		cfg.Automation.AllowedRunbooks = splitList(v)
	}
	if v, ok := lookup("PORTAL_RATE_LIMIT"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse PORTAL_RATE_LIMIT %q: %w", v, err)
		}
		cfg.Server.RateLimit = f
	}
	if v, ok := lookup("BATCH_MAX_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse BATCH_MAX_SIZE %q: %w", v, err)
		}
		cfg.Batch.MaxSize = n
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func applyDefaults(cfg *Config) {
	if cfg.Automation.ResourceGroup == "" {
		cfg.Automation.ResourceGroup = "rg-vmportal"
	}
	if cfg.Automation.SubscriptionID == "" {
		cfg.Automation.SubscriptionID = cfg.Azure.VMSubscriptionID
	}
	if len(cfg.Automation.AllowedRunbooks) == 0 {
		cfg.Automation.AllowedRunbooks = []string{"Start-ScheduledVMs", "Stop-ScheduledVMs"}
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MetricsAddr == "" {
		cfg.Server.MetricsAddr = ":9090"
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = int(cfg.Server.RateLimit * 2)
		if cfg.Server.RateBurst < 1 {
			cfg.Server.RateBurst = 1
		}
	}
	if cfg.Server.ShutdownTimeoutStr == "" {
		cfg.Server.ShutdownTimeoutStr = "15s"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "vmportal"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Batch.MaxSize == 0 {
		cfg.Batch.MaxSize = 10
	}
}

func parseDurations(cfg *Config) error {
	d, err := time.ParseDuration(cfg.Server.ShutdownTimeoutStr)
	if err != nil {
		return fmt.Errorf("parse shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutStr, err)
	}
	cfg.Server.ShutdownTimeout = d
	return nil
}

// Validate checks the configuration is valid. Missing Azure targets are not
// fatal here; operations that need them report it per request.
func (c *Config) Validate() error {
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("server: rate_limit and rate_burst must not be negative")
	}
	if c.Batch.MaxSize < 1 {
		return fmt.Errorf("batch: max_size must be positive (got %d)", c.Batch.MaxSize)
	}
	if c.Batch.MaxSize > batch.MaxSize {
		return fmt.Errorf("batch: max_size must be at most %d (got %d)", batch.MaxSize, c.Batch.MaxSize)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log: format must be json or console (got %q)", c.Log.Format)
	}
	return nil
}

// CheckVMTarget reports whether the VM subscription and resource group are set.
func (c AzureConfig) CheckVMTarget() error {
	if c.VMSubscriptionID == "" || c.VMResourceGroup == "" {
		return errors.New("missing VM_SUBSCRIPTION_ID or VM_RESOURCE_GROUP configuration")
	}
	return nil
}

// CheckAutomation reports whether the Automation account is fully identified.
func (c AutomationConfig) CheckAutomation() error {
	if c.SubscriptionID == "" || c.ResourceGroup == "" || c.AccountName == "" {
		return errors.New("missing AUTOMATION_SUBSCRIPTION_ID, AUTOMATION_RESOURCE_GROUP or AUTOMATION_ACCOUNT_NAME configuration")
	}
	return nil
}

// HasClientSecret reports whether service principal credentials are configured.
func (c AzureConfig) HasClientSecret() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// RunbookAllowed reports whether name may be triggered through the portal.
func (c AutomationConfig) RunbookAllowed(name string) bool {
	for _, r := range c.AllowedRunbooks {
		if r == name {
			return true
		}
	}
	return false
}
