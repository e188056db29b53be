package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/bastion/pkg/cli"
	"mercator-hq/bastion/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bastion",
	Short: "Bastion - policy sandbox for untrusted PHP programs",
	Long: `Bastion validates untrusted PHP programs against a whitelist and blacklist
policy and rewrites them so that functions, superglobals, magic constants and
strings are routed through the sandbox runtime.

Exit codes:
  0  every program passed
  1  at least one program was rejected
  2  the command could not run`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults are used when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration named by --config with environment
// overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}
