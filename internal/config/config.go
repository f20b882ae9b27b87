package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "TODO_SCANNER_CONFIG"

	graphClientIDEnv     = "GRAPH_CLIENT_ID"
	graphClientSecretEnv = "GRAPH_CLIENT_SECRET"
	graphTenantIDEnv     = "GRAPH_TENANT_ID"
	monitorUserEmailEnv  = "MONITOR_USER_EMAIL"
	anthropicAPIKeyEnv   = "ANTHROPIC_API_KEY"
	firefliesAPIKeyEnv   = "FIREFLIES_API_KEY"
	databaseDSNEnv       = "DATABASE_DSN"
	sheetsIDEnv          = "SHEETS_SPREADSHEET_ID"
	encryptionKeyEnv     = "ENCRYPTION_PASSPHRASE"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Graph     GraphConfig     `yaml:"graph"`
	Fireflies FirefliesConfig `yaml:"fireflies"`
	Model     ModelConfig     `yaml:"model"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Sinks     SinksConfig     `yaml:"sinks"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MonitorConfig names the single identity whose mail and meetings are watched.
type MonitorConfig struct {
	UserEmail    string `yaml:"userEmail"`
	IdentityName string `yaml:"identityName"`
}

// GraphConfig describes the Microsoft Graph client-credentials application.
type GraphConfig struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	TenantID     string `yaml:"tenantId"`
	Endpoint     string `yaml:"endpoint"`
}

// FirefliesConfig wires the transcript provider.
type FirefliesConfig struct {
	APIKey   string `yaml:"apiKey"`
	Endpoint string `yaml:"endpoint"`
}

// ModelConfig defines how to contact the classification model API.
type ModelConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"apiKey"`
	MaxTokens int    `yaml:"maxTokens"`
}

// TierConfig is one time-of-day polling band. StartHour may exceed EndHour to
// express a band wrapping midnight (e.g. 21-5).
type TierConfig struct {
	Name            string `yaml:"name"`
	StartHour       int    `yaml:"startHour"`
	EndHour         int    `yaml:"endHour"`
	IntervalSeconds int    `yaml:"intervalSeconds"`
	TranscriptEvery int    `yaml:"transcriptEvery"`
}

// Interval resolves the tier's polling interval.
func (t TierConfig) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

// SchedulerConfig defines the polling cadence.
type SchedulerConfig struct {
	Timezone                  string         `yaml:"timezone"`
	Tiers                     []TierConfig   `yaml:"tiers"`
	EmailLookbackMinutes      int            `yaml:"emailLookbackMinutes"`
	TranscriptLookbackMinutes int            `yaml:"transcriptLookbackMinutes"`
	location                  *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// EmailLookback is the first-run fetch window for mail.
func (s SchedulerConfig) EmailLookback() time.Duration {
	return time.Duration(s.EmailLookbackMinutes) * time.Minute
}

// TranscriptLookback is the first-run fetch window for transcripts.
func (s SchedulerConfig) TranscriptLookback() time.Duration {
	return time.Duration(s.TranscriptLookbackMinutes) * time.Minute
}

// SinksConfig groups every downstream destination. A sink with empty settings
// is simply not constructed.
type SinksConfig struct {
	File      FileSinkConfig      `yaml:"file"`
	Database  DatabaseConfig      `yaml:"database"`
	Sheets    SheetsConfig        `yaml:"sheets"`
	Encrypted EncryptedSinkConfig `yaml:"encrypted"`
	TaskList  TaskListConfig      `yaml:"taskList"`
}

// FileSinkConfig locates the flat todo file.
type FileSinkConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SheetsConfig wires the spreadsheet append sink.
type SheetsConfig struct {
	CredentialsPath string `yaml:"credentialsPath"`
	SpreadsheetID   string `yaml:"spreadsheetId"`
}

// EncryptedSinkConfig stores AES-encrypted snapshots on local disk.
type EncryptedSinkConfig struct {
	Dir        string `yaml:"dir"`
	Passphrase string `yaml:"passphrase"`
}

// TaskListConfig names the remote To Do list.
type TaskListConfig struct {
	Enabled  bool   `yaml:"enabled"`
	ListName string `yaml:"listName"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Scheduler.Tiers) == 0 {
		cfg.Scheduler.Tiers = defaultConfig().Scheduler.Tiers
	}

	return cfg
}

// Validate fails fast on startup configuration the loop cannot run without.
func (c Config) Validate() error {
	if c.Monitor.UserEmail == "" {
		return fmt.Errorf("monitor.userEmail is required (env %s)", monitorUserEmailEnv)
	}
	if c.Graph.ClientID == "" || c.Graph.ClientSecret == "" || c.Graph.TenantID == "" {
		return fmt.Errorf("graph clientId, clientSecret and tenantId are required (env %s, %s, %s)",
			graphClientIDEnv, graphClientSecretEnv, graphTenantIDEnv)
	}
	if c.Model.APIKey == "" {
		return fmt.Errorf("model.apiKey is required (env %s)", anthropicAPIKeyEnv)
	}
	if len(c.Scheduler.Tiers) < 3 {
		return fmt.Errorf("scheduler needs at least three interval tiers, got %d", len(c.Scheduler.Tiers))
	}
	for _, tier := range c.Scheduler.Tiers {
		if tier.IntervalSeconds <= 0 {
			return fmt.Errorf("tier %s has non-positive interval", tier.Name)
		}
		if tier.TranscriptEvery <= 0 {
			return fmt.Errorf("tier %s has non-positive transcriptEvery", tier.Name)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(graphClientIDEnv); v != "" {
		c.Graph.ClientID = v
	}

	if v := os.Getenv(graphClientSecretEnv); v != "" {
		c.Graph.ClientSecret = v
	}

	if v := os.Getenv(graphTenantIDEnv); v != "" {
		c.Graph.TenantID = v
	}

	if v := os.Getenv(monitorUserEmailEnv); v != "" {
		c.Monitor.UserEmail = v
	}

	if v := os.Getenv(anthropicAPIKeyEnv); v != "" {
		c.Model.APIKey = v
	}

	if v := os.Getenv(firefliesAPIKeyEnv); v != "" {
		c.Fireflies.APIKey = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Sinks.Database.DSN = v
	}

	if v := os.Getenv(sheetsIDEnv); v != "" {
		c.Sinks.Sheets.SpreadsheetID = v
	}

	if v := os.Getenv(encryptionKeyEnv); v != "" {
		c.Sinks.Encrypted.Passphrase = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Monitor.UserEmail != "" {
		base.Monitor.UserEmail = override.Monitor.UserEmail
	}
	if override.Monitor.IdentityName != "" {
		base.Monitor.IdentityName = override.Monitor.IdentityName
	}

	if override.Graph.ClientID != "" {
		base.Graph.ClientID = override.Graph.ClientID
	}
	if override.Graph.ClientSecret != "" {
		base.Graph.ClientSecret = override.Graph.ClientSecret
	}
	if override.Graph.TenantID != "" {
		base.Graph.TenantID = override.Graph.TenantID
	}
	if override.Graph.Endpoint != "" {
		base.Graph.Endpoint = override.Graph.Endpoint
	}

	if override.Fireflies.APIKey != "" {
		base.Fireflies.APIKey = override.Fireflies.APIKey
	}
	if override.Fireflies.Endpoint != "" {
		base.Fireflies.Endpoint = override.Fireflies.Endpoint
	}

	if override.Model.Endpoint != "" {
		base.Model.Endpoint = override.Model.Endpoint
	}
	if override.Model.Model != "" {
		base.Model.Model = override.Model.Model
	}
	if override.Model.APIKey != "" {
		base.Model.APIKey = override.Model.APIKey
	}
	if override.Model.MaxTokens > 0 {
		base.Model.MaxTokens = override.Model.MaxTokens
	}

	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if len(override.Scheduler.Tiers) > 0 {
		base.Scheduler.Tiers = override.Scheduler.Tiers
	}
	if override.Scheduler.EmailLookbackMinutes > 0 {
		base.Scheduler.EmailLookbackMinutes = override.Scheduler.EmailLookbackMinutes
	}
	if override.Scheduler.TranscriptLookbackMinutes > 0 {
		base.Scheduler.TranscriptLookbackMinutes = override.Scheduler.TranscriptLookbackMinutes
	}

	if override.Sinks.File.Path != "" {
		base.Sinks.File = override.Sinks.File
	}
	if override.Sinks.Database.DSN != "" {
		base.Sinks.Database = override.Sinks.Database
	}
	if override.Sinks.Sheets.SpreadsheetID != "" || override.Sinks.Sheets.CredentialsPath != "" {
		base.Sinks.Sheets = override.Sinks.Sheets
	}
	if override.Sinks.Encrypted.Dir != "" || override.Sinks.Encrypted.Passphrase != "" {
		base.Sinks.Encrypted = override.Sinks.Encrypted
	}
	if override.Sinks.TaskList.Enabled || override.Sinks.TaskList.ListName != "" {
		base.Sinks.TaskList = override.Sinks.TaskList
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Graph:   GraphConfig{Endpoint: "https://graph.microsoft.com/v1.0"},
		Fireflies: FirefliesConfig{
			Endpoint: "https://api.fireflies.ai/graphql",
		},
		Model: ModelConfig{
			Endpoint:  "https://api.anthropic.com/v1/messages",
			Model:     "claude-3-5-sonnet-20241022",
			MaxTokens: 2000,
		},
		Scheduler: SchedulerConfig{
			Timezone: defaultTimezone,
			location: tz,
			Tiers: []TierConfig{
				{Name: "business", StartHour: 9, EndHour: 18, IntervalSeconds: 30, TranscriptEvery: 2},
				{Name: "off-hours", StartHour: 21, EndHour: 5, IntervalSeconds: 300, TranscriptEvery: 3},
				{Name: "shoulder", StartHour: 0, EndHour: 24, IntervalSeconds: 120, TranscriptEvery: 2},
			},
			EmailLookbackMinutes:      1,
			TranscriptLookbackMinutes: 60,
		},
		Sinks: SinksConfig{
			File:     FileSinkConfig{Path: "todos.txt"},
			TaskList: TaskListConfig{ListName: "Email Tasks"},
		},
	}
}
