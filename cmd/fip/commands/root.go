package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fip",
	Short: "fip - quality-momentum scoring and strategy pipelines",
	Long: `fip scores stocks on quality momentum (the "frog in the pan"
methodology: gradual climbers over erratic jumpers) and chains scoring
strategies into declarative selection pipelines.

Usage:
  fip [command]

Examples:
  fip api
  fip run --config config/pipeline.yaml
  fip rank --limit 20
  fip score AAPL
  fip scheduler`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
