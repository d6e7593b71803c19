package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/pricing"
)

// Source names where rules and the pricing catalog are read from.
const (
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

// CronParser accepts the six-field (seconds first) specs the scheduler runs with.
var CronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	JWT       JWTConfig       `yaml:"jwt"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Rules     RulesConfig     `yaml:"rules"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
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

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// JWTConfig contains admin token settings
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	Issuer      string `yaml:"issuer"`
	TokenExpiry int    `yaml:"token_expiry_minutes"`
}

// PricingConfig holds the currency, VAT rate and multiplier schedule.
// Decimal values are strings so they stay exact.
type PricingConfig struct {
	Currency             string `yaml:"currency"`
	VATRate              string `yaml:"vat_rate"`
	Timezone             string `yaml:"timezone"`
	MotorcycleMultiplier string `yaml:"motorcycle_multiplier"`
	PeakMultiplier       string `yaml:"peak_multiplier"`
	NightMultiplier      string `yaml:"night_multiplier"`
}

// RulesConfig selects the discount rule store
type RulesConfig struct {
	Source           string `yaml:"source"` // "postgres" or "file"
	File             string `yaml:"file"`
	StrictValidation bool   `yaml:"strict_validation"`
}

// CatalogConfig selects where spot pricing hierarchies come from
type CatalogConfig struct {
	Source string `yaml:"source"` // "postgres" or "file"
	File   string `yaml:"file"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	RefreshRules string `yaml:"refresh_rules"`
}

// LoadEnvFiles loads .env style files into the process environment.
// Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates
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

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Pricing
	if val := os.Getenv("PRICING_CURRENCY"); val != "" {
		c.Pricing.Currency = val
	}
	if val := os.Getenv("VAT_RATE"); val != "" {
		c.Pricing.VATRate = val
	}
	if val := os.Getenv("PRICING_TIMEZONE"); val != "" {
		c.Pricing.Timezone = val
	}

	// Rules and catalog
	if val := os.Getenv("RULES_SOURCE"); val != "" {
		c.Rules.Source = val
	}
	if val := os.Getenv("RULES_FILE"); val != "" {
		c.Rules.File = val
	}
	if val := os.Getenv("RULES_STRICT_VALIDATION"); val != "" {
		if strict, err := strconv.ParseBool(val); err == nil {
			c.Rules.StrictValidation = strict
		}
	}
	if val := os.Getenv("CATALOG_SOURCE"); val != "" {
		c.Catalog.Source = val
	}
	if val := os.Getenv("CATALOG_FILE"); val != "" {
		c.Catalog.File = val
	}

	// Scheduler
	if val := os.Getenv("RULE_REFRESH_SCHEDULE"); val != "" {
		c.Scheduler.RefreshRules = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = c.Server.Port + 1
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 || c.Server.GRPCPort == c.Server.Port {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}

	// Sources
	if c.Rules.Source == "" {
		c.Rules.Source = SourcePostgres
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = SourcePostgres
	}
	if err := validateSource("rules", c.Rules.Source, c.Rules.File); err != nil {
		return err
	}
	if err := validateSource("catalog", c.Catalog.Source, c.Catalog.File); err != nil {
		return err
	}

	// Database validation
	if c.UsesDatabase() {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "parkspot-pricing"
	}
	if c.JWT.TokenExpiry <= 0 {
		c.JWT.TokenExpiry = 60
	}

	// Pricing defaults
	if c.Pricing.Currency == "" {
		c.Pricing.Currency = string(domain.CurrencyPHP)
	}
	if c.Pricing.VATRate == "" {
		c.Pricing.VATRate = "0.12"
	}
	if c.Pricing.Timezone == "" {
		c.Pricing.Timezone = "Asia/Manila"
	}
	if _, err := c.Pricing.CurrencyCode(); err != nil {
		return err
	}
	if _, err := c.Pricing.Rate(); err != nil {
		return err
	}
	if _, err := c.Pricing.Location(); err != nil {
		return err
	}
	if _, err := c.Pricing.Schedule(); err != nil {
		return err
	}

	// Scheduler defaults
	if c.Scheduler.RefreshRules == "" {
		c.Scheduler.RefreshRules = "0 */5 * * * *" // every five minutes
	}
	if _, err := CronParser.Parse(c.Scheduler.RefreshRules); err != nil {
		return fmt.Errorf("invalid refresh_rules schedule %q: %w", c.Scheduler.RefreshRules, err)
	}

	return nil
}

func validateSource(section, source, file string) error {
	switch source {
	case SourcePostgres:
		return nil
	case SourceFile:
		if file == "" {
			return fmt.Errorf("%s file is required when source is %q", section, SourceFile)
		}
		return nil
	default:
		return fmt.Errorf("unknown %s source: %q", section, source)
	}
}

// UsesDatabase reports whether any store is backed by Postgres
func (c *Config) UsesDatabase() bool {
	return c.Rules.Source == SourcePostgres || c.Catalog.Source == SourcePostgres
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

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC server address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// TokenExpiry returns the admin token lifetime
func (c *Config) TokenExpiry() time.Duration {
	return time.Duration(c.JWT.TokenExpiry) * time.Minute
}

func (p PricingConfig) CurrencyCode() (domain.Currency, error) {
	return domain.NewCurrency(p.Currency)
}

// Rate returns the VAT rate as a fraction in [0, 1]
func (p PricingConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(p.VATRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid vat_rate %q: %w", p.VATRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("vat_rate must be between 0 and 1, got %s", rate)
	}
	return rate, nil
}

func (p PricingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid pricing timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

// Schedule builds the multiplier schedule, starting from the default
// one and replacing any multiplier that is configured.
func (p PricingConfig) Schedule() (pricing.Schedule, error) {
	schedule := pricing.DefaultSchedule()

	overrides := []struct {
		name  string
		raw   string
		apply func(decimal.Decimal)
	}{
		{"motorcycle_multiplier", p.MotorcycleMultiplier, func(d decimal.Decimal) {
			schedule.VehicleMultipliers[domain.VehicleTypeMotorcycle] = d
		}},
		{"peak_multiplier", p.PeakMultiplier, func(d decimal.Decimal) { schedule.PeakMultiplier = d }},
		{"night_multiplier", p.NightMultiplier, func(d decimal.Decimal) { schedule.NightMultiplier = d }},
	}
	for _, o := range overrides {
		if o.raw == "" {
			continue
		}
		value, err := decimal.NewFromString(o.raw)
		if err != nil {
			return pricing.Schedule{}, fmt.Errorf("invalid %s %q: %w", o.name, o.raw, err)
		}
		o.apply(value)
	}

	if err := schedule.Validate(); err != nil {
		return pricing.Schedule{}, err
	}
	return schedule, nil
}
