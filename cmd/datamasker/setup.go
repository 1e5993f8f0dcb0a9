// cmd/datamasker/setup.go
package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/config"
	"github.com/David-Botos/data-masker/pkg/logging"
)

// flagKeys maps command-line flags onto configuration keys
var flagKeys = map[string]string{
	"dry-run":           "dataSource.dryRun",
	"batch-size":        "dataSource.updateBatchSize",
	"continue-on-error": "continueOnError",
	"update-mode":       "updateMode",
	"log-format":        "logFormat",
}

// loadConfig reads the configuration with any flags of cmd bound over it
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	v := viper.New()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	if flags.verbose {
		v.Set("logLevel", "debug")
	}
	return config.LoadWithViper(v, flags.configPath)
}

// setup loads the configuration and builds the logger from it
func setup(cmd *cobra.Command, flags *globalFlags) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
