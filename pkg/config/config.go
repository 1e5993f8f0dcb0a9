// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/David-Botos/data-masker/pkg/model"
	"github.com/David-Botos/data-masker/pkg/runner"
)

// EnvPrefix prefixes every environment override, e.g. DATAMASKER_DATASOURCE_DRYRUN
const EnvPrefix = "DATAMASKER"

// Config represents the application configuration
type Config struct {
	DataSource     model.DataSourceConfig     `mapstructure:"dataSource" yaml:"dataSource"`
	DataGeneration model.DataGenerationConfig `mapstructure:"dataGeneration" yaml:"dataGeneration"`
	Tables         []model.TableConfig        `mapstructure:"tables" yaml:"tables"`

	// UpdateMode is "batch" for transactional batches or "row" for one update per row
	UpdateMode      string `mapstructure:"updateMode" yaml:"updateMode"`
	ContinueOnError bool   `mapstructure:"continueOnError" yaml:"continueOnError"`

	// Logging
	LogLevel  string `mapstructure:"logLevel" yaml:"logLevel"`
	LogFormat string `mapstructure:"logFormat" yaml:"logFormat"`
}

// Load reads the configuration file at path with environment overrides applied
func Load(path string) (*Config, error) {
	return LoadWithViper(viper.New(), path)
}

// LoadWithViper reads the configuration through v, so callers can bind
// command-line flags before loading. A .env file in the working directory
// is loaded first when present.
func LoadWithViper(v *viper.Viper, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to load .env: %w", model.ErrConfiguration, err)
	}

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		"dataSource.connection.connectionString",
		"dataSource.connection.password",
		"dataSource.connection.user",
		"dataSource.connection.host",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path == "" {
		return nil, fmt.Errorf("%w: config file path is required", model.ErrConfiguration)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", model.ErrConfiguration, path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", model.ErrConfiguration, path, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataSource.updateBatchSize", 0)
	v.SetDefault("dataSource.dryRun", false)
	v.SetDefault("dataSource.fakeRowCount", 0)
	v.SetDefault("dataGeneration.locale", model.DefaultDataGenerationConfig().Locale)
	v.SetDefault("dataGeneration.seed", 0)
	v.SetDefault("updateMode", runner.UpdateModeBatch)
	v.SetDefault("continueOnError", false)
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", "console")
}

// normalize canonicalizes enum-like values and expands ${VAR} references
func (c *Config) normalize() error {
	if c.DataSource.Type != "" {
		t, err := model.ParseDataSourceType(string(c.DataSource.Type))
		if err != nil {
			return err
		}
		c.DataSource.Type = t
	}

	c.UpdateMode = strings.ToLower(c.UpdateMode)
	c.LogFormat = strings.ToLower(c.LogFormat)
	c.DataSource.Connection = expandConnection(c.DataSource.Connection)
	return nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.DataSource.Type == "" {
		return fmt.Errorf("%w: dataSource.type is required", model.ErrConfiguration)
	}
	if _, err := model.ParseDataSourceType(string(c.DataSource.Type)); err != nil {
		return err
	}

	if c.DataSource.UpdateBatchSize < 0 {
		return fmt.Errorf("%w: dataSource.updateBatchSize cannot be negative", model.ErrConfiguration)
	}

	if c.DataSource.FakeRowCount < 0 {
		return fmt.Errorf("%w: dataSource.fakeRowCount cannot be negative", model.ErrConfiguration)
	}

	if c.DataSource.Type.IsRelational() {
		if err := validateConnection(c.DataSource.Type, c.DataSource.Connection); err != nil {
			return err
		}
	}

	switch c.UpdateMode {
	case runner.UpdateModeBatch, runner.UpdateModeRow:
	default:
		return fmt.Errorf("%w: updateMode must be %q or %q, got %q", model.ErrConfiguration, runner.UpdateModeBatch, runner.UpdateModeRow, c.UpdateMode)
	}

	// Batch updates hold one connection while the read cursor needs another
	if c.DataSource.Type.IsRelational() && c.UpdateMode == runner.UpdateModeBatch && c.DataSource.Connection.MaxOpenConns == 1 {
		return fmt.Errorf("%w: dataSource.connection.maxOpenConns must be 0 or at least 2 in batch update mode", model.ErrConfiguration)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logFormat must be json or console, got %q", model.ErrConfiguration, c.LogFormat)
	}

	if len(c.Tables) == 0 {
		return fmt.Errorf("%w: at least one table is required", model.ErrConfiguration)
	}

	seen := make(map[string]bool, len(c.Tables))
	for _, table := range c.Tables {
		if err := table.Validate(); err != nil {
			return err
		}
		if seen[table.FullName()] {
			return fmt.Errorf("%w: table %s is configured more than once", model.ErrConfiguration, table.FullName())
		}
		seen[table.FullName()] = true
	}

	return nil
}

// Redacted returns a copy that is safe to print
func (c *Config) Redacted() *Config {
	out := *c
	out.DataSource.Connection = redactConnection(c.DataSource.Connection)
	out.Tables = append([]model.TableConfig(nil), c.Tables...)
	return &out
}

// YAML renders the configuration as YAML
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
