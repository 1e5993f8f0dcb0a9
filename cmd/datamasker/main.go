// cmd/datamasker/main.go
package main

import (
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func init() {
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
}

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "datamasker",
		Short:         "Replace sensitive column values with synthetic data",
		Version:       version,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "config.yaml", "Path to the masking configuration (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose (debug) logging")

	rootCmd.AddCommand(newRunCmd(flags))
	rootCmd.AddCommand(newCountCmd(flags))
	rootCmd.AddCommand(newConfigCmd(flags))
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
