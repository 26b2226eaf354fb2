package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fip/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a strategy pipeline from a YAML config",
	Long: `Execute a declarative strategy pipeline.

The config chains scoring strategies with explicit input/output counts:

  name: momentum-then-lowvol
  stages:
    - strategy: momentum
      input_count: 500
      output_count: 50
    - strategy: low_volatility
      input_count: 50
      output_count: 10

Example:
  fip run --config config/pipeline.yaml
  fip run --config config/pipeline.yaml --as-of 2026-08-25`,
	RunE: runPipeline,
}

var (
	runConfigPath string
	runAsOf       string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runConfigPath, "config", "config/pipeline.yaml", "pipeline config file")
	runCmd.Flags().StringVar(&runAsOf, "as-of", "", "evaluation date YYYY-MM-DD (default: today)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := pipeline.Load(runConfigPath)
	if err != nil {
		return err
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if runAsOf != "" {
		asOf, err = time.Parse("2006-01-02", runAsOf)
		if err != nil {
			return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
		}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.executor.Run(context.Background(), cfg, asOf)
	if err != nil {
		printRunSummary(result)
		return err
	}

	printRunSummary(result)
	return nil
}

func printRunSummary(result *pipeline.RunResult) {
	if result == nil {
		return
	}

	fmt.Printf("\nPipeline: %s (%s)\n", result.Name, result.RunID)
	fmt.Printf("State:    %s\n", result.State)
	fmt.Printf("As of:    %s\n", result.AsOf.Format("2006-01-02"))
	if result.Error != "" {
		fmt.Printf("Error:    %s\n", result.Error)
	}

	for _, trace := range result.Stages {
		m := trace.Result.Metrics
		fmt.Printf("\nStage %d  %s\n", trace.Stage, trace.StrategyID)
		fmt.Printf("  in=%d scored=%d dropped=%d out=%d shortfall=%d elapsed=%s\n",
			m.Input, m.Scored, m.Dropped, m.Output, trace.Shortfall, m.Elapsed)
	}

	if len(result.Final) > 0 {
		fmt.Printf("\n%-4s %-8s %-28s %-12s %s\n", "#", "SYMBOL", "NAME", "SECTOR", "SCORE")
		for i, r := range result.Final {
			fmt.Printf("%-4d %-8s %-28s %-12s %.4f\n",
				i+1, r.Stock.Symbol, truncate(r.Stock.Name, 28), truncate(r.Stock.Sector, 12), r.Score)
		}
	}
}

// truncate shortens s to n display runes; byte slicing would split multibyte
// names.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
