// Package commands implements the zeroblk CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeroblk/zeroblk/internal/logger"
	"github.com/zeroblk/zeroblk/pkg/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "zeroblk",
	Short: "zeroblk - zero the free blocks of a disk image",
	Long: `zeroblk scans every block of a disk image, finds the blocks the
allocation bitmap marks as free, and overwrites the ones that do not
already hold the fill pattern. Freshly zeroed free space makes images
compress and deduplicate well.

Use "zeroblk [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/zeroblk/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(wipeCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("zeroblk %s (commit %s, built %s)\n", Version, Commit, Date)
	},
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}
