package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rezonia/tax-ledger/internal/ledger"
	"github.com/rezonia/tax-ledger/internal/model"
)

// EnvPrefix prefixes every environment override (TAXLEDGER_SERVER_ADDRESS, ...)
const EnvPrefix = "TAXLEDGER"

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Report     ReportConfig     `mapstructure:"report"`
	Store      StoreConfig      `mapstructure:"store"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// ProcessingConfig bounds batch runs
type ProcessingConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	Concurrency  int           `mapstructure:"concurrency"`
	MaxDocuments int           `mapstructure:"max_documents"`
	MaxFileBytes int64         `mapstructure:"max_file_bytes"`
}

// LedgerConfig selects row assembly behavior
type LedgerConfig struct {
	Party   string `mapstructure:"party"`
	Origins string `mapstructure:"origins"`
}

// ReportConfig holds spreadsheet settings
type ReportConfig struct {
	SheetName    string `mapstructure:"sheet_name"`
	SummarySheet bool   `mapstructure:"summary_sheet"`
}

// StoreConfig holds generated report storage settings
type StoreConfig struct {
	Dir string        `mapstructure:"dir"`
	TTL time.Duration `mapstructure:"ttl"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with defaults and environment binding, ready
// for flag binding before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load loads configuration from an optional YAML file and the environment
func Load(configPath string) (*Config, error) {
	return LoadFrom(New(), configPath)
}

// LoadFrom loads configuration through v. An empty configPath skips the file.
func LoadFrom(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":5051")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 330*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(100<<20))

	// Processing defaults
	v.SetDefault("processing.timeout", 300*time.Second)
	v.SetDefault("processing.concurrency", 4)
	v.SetDefault("processing.max_documents", 0)
	v.SetDefault("processing.max_file_bytes", int64(100<<20))

	// Ledger defaults
	v.SetDefault("ledger.party", string(ledger.PartyCustomer))
	v.SetDefault("ledger.origins", string(ledger.OriginsAll))

	// Report defaults
	v.SetDefault("report.sheet_name", "Facturas")
	v.SetDefault("report.summary_sheet", true)

	// Store defaults
	v.SetDefault("store.dir", filepath.Join(os.TempDir(), "tax-ledger"))
	v.SetDefault("store.ttl", 24*time.Hour)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return model.NewValidationError("server.address", nil, "required", "must not be empty")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return model.NewValidationError("server.max_upload_bytes", c.Server.MaxUploadBytes, "min", "must be positive")
	}
	if c.Processing.Concurrency < 1 {
		return model.NewValidationError("processing.concurrency", c.Processing.Concurrency, "min", "must be at least 1")
	}
	if c.Processing.Timeout < 0 {
		return model.NewValidationError("processing.timeout", c.Processing.Timeout, "min", "must not be negative")
	}
	if c.Processing.MaxDocuments < 0 {
		return model.NewValidationError("processing.max_documents", c.Processing.MaxDocuments, "min", "must not be negative")
	}
	if _, err := ledger.ParseParty(c.Ledger.Party); err != nil {
		return model.NewValidationError("ledger.party", c.Ledger.Party, "enum", err.Error())
	}
	if _, err := ledger.ParseOriginPolicy(c.Ledger.Origins); err != nil {
		return model.NewValidationError("ledger.origins", c.Ledger.Origins, "enum", err.Error())
	}
	if strings.TrimSpace(c.Report.SheetName) == "" {
		return model.NewValidationError("report.sheet_name", nil, "required", "must not be empty")
	}
	if c.Store.TTL <= 0 {
		return model.NewValidationError("store.ttl", c.Store.TTL, "min", "must be positive")
	}
	return nil
}

// Party returns the validated ledger party
func (c *Config) Party() ledger.Party {
	p, _ := ledger.ParseParty(c.Ledger.Party)
	return p
}

// Origins returns the validated origin policy
func (c *Config) Origins() ledger.OriginPolicy {
	o, _ := ledger.ParseOriginPolicy(c.Ledger.Origins)
	return o
}
