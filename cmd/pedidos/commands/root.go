package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	backendFlag string
	verbose     bool
	jsonOutput  bool

	// buildVersion is reported in exported spans.
	buildVersion string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	buildVersion = version

	rootCmd := &cobra.Command{
		Use:   "pedidos",
		Short: "Pedidos - medication order registry",
		Long: `Pedidos records medication orders placed by a pharmacy with its distributors.

Orders are kept either in a local XML document or in a relational database
(MySQL, or SQLite for single-machine use). One backend is active at a time;
switching backends does not copy data between them.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default pedidos.yaml)")
	rootCmd.PersistentFlags().StringVarP(&backendFlag, "backend", "b", "", "backend to use: auto, xml or sql (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newAddCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newDeleteCommand())
	rootCmd.AddCommand(newUpdateQuantityCommand())
	rootCmd.AddCommand(newCountCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
