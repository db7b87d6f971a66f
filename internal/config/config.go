package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/admissions-allocator/pkg/core/model"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
)

const (
	StorePostgres = "postgres"
	StoreFile     = "file"

	configBaseName = "admissions_config"

	// DatabaseURLEnv overrides databaseURL when set
	DatabaseURLEnv = "DATABASE_URL"
)

// ProgramConfig defines a program to rank
type ProgramConfig struct {
	Code string `yaml:"code" validate:"required"`
	Name string `yaml:"name" validate:"required"`

	// Quota seeds the program's seat count when none is stored yet
	Quota *int `yaml:"quota,omitempty" validate:"omitempty,min=0,max=200"`
}

// Config represents the application configuration
type Config struct {
	Store        string `yaml:"store" validate:"required,oneof=postgres file"`
	DatabaseURL  string `yaml:"databaseURL,omitempty" validate:"required_if=Store postgres"`
	SnapshotPath string `yaml:"snapshotPath,omitempty" validate:"required_if=Store file"`

	DefaultQuota        int           `yaml:"defaultQuota,omitempty" validate:"min=0,max=200"`
	ReservePercent      int           `yaml:"reservePercent,omitempty" validate:"min=0,max=100"`
	StoreTimeout        time.Duration `yaml:"storeTimeout,omitempty" validate:"min=0"`
	MaxParallelPrograms int           `yaml:"maxParallelPrograms,omitempty" validate:"min=0"`
	MaxConnections      int32         `yaml:"maxConnections,omitempty" validate:"min=0"`

	Programs []ProgramConfig `yaml:"programs" validate:"required,min=1,dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates admissions_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads admissions_config.<env>.yaml, falling back to admissions_config.yaml.
// A .env file in the current directory is loaded first when present.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if url := os.Getenv(DatabaseURLEnv); url != "" {
		cfg.DatabaseURL = url
	}
	cfg.applyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv loads environment variables from path without overriding existing ones.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DefaultQuota == 0 {
		c.DefaultQuota = quota.DefaultSeats
	}
	if c.ReservePercent == 0 {
		c.ReservePercent = quota.DefaultReservePercent
	}
	if c.StoreTimeout == 0 {
		c.StoreTimeout = 10 * time.Second
	}
	if c.MaxParallelPrograms == 0 {
		c.MaxParallelPrograms = 4
	}
}

// Validate validates the configuration struct and cross-field rules
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Programs))
	for i, p := range cfg.Programs {
		if seen[p.Code] {
			return fmt.Errorf("duplicate program code in programs[%d]: %s", i, p.Code)
		}
		seen[p.Code] = true
	}

	return nil
}

// ProgramList returns the configured programs in declaration order
func (c *Config) ProgramList() []model.Program {
	programs := make([]model.Program, len(c.Programs))
	for i, p := range c.Programs {
		programs[i] = model.Program{Code: p.Code, Name: p.Name}
	}
	return programs
}

// ProgramNames maps program codes to display names
func (c *Config) ProgramNames() map[string]string {
	names := make(map[string]string, len(c.Programs))
	for _, p := range c.Programs {
		names[p.Code] = p.Name
	}
	return names
}

// SeedQuotas returns the quotas declared in the config file
func (c *Config) SeedQuotas() map[string]int {
	seeds := make(map[string]int)
	for _, p := range c.Programs {
		if p.Quota != nil {
			seeds[p.Code] = *p.Quota
		}
	}
	return seeds
}

// findConfigFile searches for the env specific config file, then the generic one,
// in the current directory and then the home directory
func findConfigFile(env string) (string, error) {
	var names []string
	if env != "" {
		names = append(names, fmt.Sprintf("%s.%s.yaml", configBaseName, env))
	}
	names = append(names, configBaseName+".yaml")

	homeDir, homeErr := os.UserHomeDir()

	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
		if homeErr != nil {
			continue
		}
		homeConfigPath := filepath.Join(homeDir, name)
		if _, err := os.Stat(homeConfigPath); err == nil {
			return homeConfigPath, nil
		}
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
