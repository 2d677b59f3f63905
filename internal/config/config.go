package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"vehicle-risk-backend/internal/pricing"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	DynamoDB   DynamoDBConfig   `yaml:"dynamodb"`
	Redis      RedisConfig      `yaml:"redis"`
	Fx         FxConfig         `yaml:"fx"`
	Risk       RiskConfig       `yaml:"risk"`
	BonusMalus BonusMalusConfig `yaml:"bonus_malus"`
	SendGrid   SendGridConfig   `yaml:"sendgrid"`
	Log        LogConfig        `yaml:"log"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// StorageConfig selects repository backends
type StorageConfig struct {
	Type                string `yaml:"type"`                  // "postgres" or "memory"
	RiskSnapshotBackend string `yaml:"risk_snapshot_backend"` // "postgres" or "dynamodb"
}

// DynamoDBConfig contains settings for the risk snapshot table
type DynamoDBConfig struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"` // local emulator, optional
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Table           string `yaml:"table"`
}

// RedisConfig contains the FX rate cache connection
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// FxConfig contains exchange rate source and snapshot settings
type FxConfig struct {
	SourceURL          string  `yaml:"source_url"`
	From               string  `yaml:"from"`
	To                 string  `yaml:"to"`
	ValidityDays       int     `yaml:"validity_days"`
	VariationThreshold float64 `yaml:"variation_threshold"`
	CacheTTLSeconds    int     `yaml:"cache_ttl_seconds"`
	TimeoutSeconds     int     `yaml:"timeout_seconds"`
	// StaticRates answers rate lookups when no source URL is set, keyed "USD/ARS".
	StaticRates map[string]float64 `yaml:"static_rates"`
}

// RiskConfig contains risk snapshot integrity rules
type RiskConfig struct {
	AllowedCreditSecurityUsd []float64                 `yaml:"allowed_credit_security_usd"`
	HoldMinRatio             float64                   `yaml:"hold_min_ratio"`
	HoldMaxRatio             float64                   `yaml:"hold_max_ratio"`
	FxBands                  map[string]pricing.FxBand `yaml:"fx_bands"`
}

// BonusMalusConfig contains recalculation settings
type BonusMalusConfig struct {
	RecalculationIntervalDays int `yaml:"recalculation_interval_days"`
	BatchSize                 int `yaml:"batch_size"`
}

// SendGridConfig contains email delivery settings
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	RecalculateBonusMalus string `yaml:"recalculate_bonus_malus"`
	RefreshFxRate         string `yaml:"refresh_fx_rate"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Storage
	if val := os.Getenv("STORAGE_TYPE"); val != "" {
		c.Storage.Type = val
	}

	// DynamoDB
	if val := os.Getenv("DYNAMODB_ENDPOINT"); val != "" {
		c.DynamoDB.Endpoint = val
	}
	if val := os.Getenv("AWS_REGION"); val != "" {
		c.DynamoDB.Region = val
	}

	// Redis
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	// FX
	if val := os.Getenv("FX_SOURCE_URL"); val != "" {
		c.Fx.SourceURL = val
	}

	// SendGrid
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Storage validation
	if c.Storage.Type == "" {
		c.Storage.Type = "postgres"
	}
	switch c.Storage.Type {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}

	if c.Storage.RiskSnapshotBackend == "" {
		c.Storage.RiskSnapshotBackend = c.Storage.Type
	}
	switch c.Storage.RiskSnapshotBackend {
	case "postgres", "memory":
		if c.Storage.RiskSnapshotBackend != c.Storage.Type {
			return fmt.Errorf("risk snapshot backend %s requires storage type %s", c.Storage.RiskSnapshotBackend, c.Storage.RiskSnapshotBackend)
		}
	case "dynamodb":
		if c.DynamoDB.Table == "" {
			return fmt.Errorf("dynamodb table is required")
		}
		if c.DynamoDB.Region == "" {
			c.DynamoDB.Region = "us-east-1"
		}
	default:
		return fmt.Errorf("unknown risk snapshot backend: %s", c.Storage.RiskSnapshotBackend)
	}

	// FX defaults
	c.Fx.From = strings.ToUpper(c.Fx.From)
	c.Fx.To = strings.ToUpper(c.Fx.To)
	if c.Fx.From == "" {
		c.Fx.From = "USD"
	}
	if c.Fx.To == "" {
		c.Fx.To = "ARS"
	}
	if c.Fx.ValidityDays <= 0 {
		c.Fx.ValidityDays = 7
	}
	if c.Fx.VariationThreshold <= 0 {
		c.Fx.VariationThreshold = pricing.DefaultVariationThreshold
	}
	if c.Fx.CacheTTLSeconds <= 0 {
		c.Fx.CacheTTLSeconds = 300
	}
	if c.Fx.TimeoutSeconds <= 0 {
		c.Fx.TimeoutSeconds = 5
	}

	// Risk defaults
	defaults := pricing.DefaultSnapshotRules()
	if c.Risk.AllowedCreditSecurityUsd == nil {
		c.Risk.AllowedCreditSecurityUsd = defaults.AllowedCreditSecurityUsd
	}
	if c.Risk.HoldMinRatio <= 0 {
		c.Risk.HoldMinRatio = defaults.HoldMinRatio
	}
	if c.Risk.HoldMaxRatio <= 0 {
		c.Risk.HoldMaxRatio = defaults.HoldMaxRatio
	}
	if c.Risk.HoldMinRatio > c.Risk.HoldMaxRatio {
		return fmt.Errorf("hold ratio band is inverted: [%.2f, %.2f]", c.Risk.HoldMinRatio, c.Risk.HoldMaxRatio)
	}
	if len(c.Risk.FxBands) == 0 {
		c.Risk.FxBands = defaults.FxBands
	}

	// Bonus-malus defaults
	if c.BonusMalus.RecalculationIntervalDays <= 0 {
		c.BonusMalus.RecalculationIntervalDays = 7
	}
	if c.BonusMalus.BatchSize <= 0 {
		c.BonusMalus.BatchSize = 500
	}

	// Scheduler defaults
	if c.Scheduler.RecalculateBonusMalus == "" {
		c.Scheduler.RecalculateBonusMalus = "0 0 3 * * *" // 3 AM UTC
	}
	if c.Scheduler.RefreshFxRate == "" {
		c.Scheduler.RefreshFxRate = "0 */30 * * * *" // every 30 minutes
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SnapshotRules converts the risk section into validator rules.
func (c *Config) SnapshotRules() pricing.SnapshotRules {
	return pricing.SnapshotRules{
		AllowedCreditSecurityUsd: c.Risk.AllowedCreditSecurityUsd,
		HoldMinRatio:             c.Risk.HoldMinRatio,
		HoldMaxRatio:             c.Risk.HoldMaxRatio,
		FxBands:                  c.Risk.FxBands,
	}
}

func (c *Config) FxValidity() time.Duration {
	return time.Duration(c.Fx.ValidityDays) * 24 * time.Hour
}

func (c *Config) FxCacheTTL() time.Duration {
	return time.Duration(c.Fx.CacheTTLSeconds) * time.Second
}

func (c *Config) FxTimeout() time.Duration {
	return time.Duration(c.Fx.TimeoutSeconds) * time.Second
}

func (c *Config) BonusMalusInterval() time.Duration {
	return time.Duration(c.BonusMalus.RecalculationIntervalDays) * 24 * time.Hour
}
