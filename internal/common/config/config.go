// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Matching      MatchingConfig          `mapstructure:"matching"`
	Assessor      AssessorConfig          `mapstructure:"assessor"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Specific Configuration Sections ---

// MatchingConfig holds the fan-out and scoring policy settings.
type MatchingConfig struct {
	// BatchSize is the number of lenders evaluated concurrently per group.
	BatchSize int `mapstructure:"batch_size"`
	// BatchPauseMs is the pause between consecutive groups, in milliseconds.
	BatchPauseMs int `mapstructure:"batch_pause_ms"`

	// Grace bands for the rule-based scorer. Zero values fall back to the
	// engine defaults.
	CibilGraceBand   float64 `mapstructure:"cibil_grace_band"`
	FoirGraceBand    float64 `mapstructure:"foir_grace_band"`
	IncomeGraceRatio float64 `mapstructure:"income_grace_ratio"`

	// CacheTTLSeconds controls how long cached assessments stay valid.
	// Zero disables caching.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

// AssessorConfig holds settings for the rich assessment capability.
type AssessorConfig struct {
	Gemini struct {
		APIKey  string `mapstructure:"api_key"`
		Model   string `mapstructure:"model"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"gemini"`
}

// NotificationConfig holds settings for the notify-matches worker.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled bool `mapstructure:"enabled"`
		// MinMatchPercentage gates SMS to strong top matches only.
		MinMatchPercentage float64 `mapstructure:"min_match_percentage"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Validate checks the settings a running service cannot do without.
func (c *Config) Validate() error {
	if c.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	if c.Matching.BatchSize < 0 {
		return fmt.Errorf("matching.batch_size must not be negative")
	}
	if c.Matching.BatchPauseMs < 0 {
		return fmt.Errorf("matching.batch_pause_ms must not be negative")
	}
	if c.Notifications.Email.Enabled && c.Notifications.Email.FromEmail == "" {
		return fmt.Errorf("notifications.email.from_email is required when email is enabled")
	}
	return nil
}
