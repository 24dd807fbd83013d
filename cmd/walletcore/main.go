// Command walletcore runs a signer host and manages a wallet profile whose
// entities are controlled by multi-factor security structures.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"WalletCore/internal/logger"
)

// globalFlags are shared by every command.
type globalFlags struct {
	ConfigPath string // ConfigPath is the TOML config file
	LogLevel   string // LogLevel overrides the config log level
}

var (
	flags globalFlags
	cfg   *Config
)

// rootCmd is the walletcore command.
var rootCmd = &cobra.Command{
	Use:           "walletcore",
	Short:         "Multi-factor wallet core",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(flags.ConfigPath)
		if err != nil {
			return err
		}

		if flags.LogLevel != "" {
			cfg.LogLevel = flags.LogLevel
		}

		level, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}

		logger.Init(level, os.Stderr)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "TOML config file")
	rootCmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Log level: debug|info|warn|error")

	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(matrixCmd)
	rootCmd.AddCommand(signCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
