package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/scoring"
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <symbol>",
	Short: "Score a single stock",
	Long: `Compute (or fetch from cache) the quality-momentum score for one
stock and print the full sub-score breakdown.

Example:
  fip score AAPL
  fip score AAPL --as-of 2026-08-25`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

var scoreAsOf string

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scoreAsOf, "as-of", "", "evaluation date YYYY-MM-DD (default: today)")
}

func runScore(cmd *cobra.Command, args []string) error {
	symbol := args[0]

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if scoreAsOf != "" {
		parsed, err := time.Parse("2006-01-02", scoreAsOf)
		if err != nil {
			return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
		}
		asOf = parsed
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	score, err := a.cache.GetOrCompute(ctx, symbol, asOf, func(ctx context.Context) (contracts.MomentumScore, error) {
		from := asOf.AddDate(0, 0, -400)
		bars, err := a.store.GetPriceHistory(ctx, symbol, from, asOf)
		if err != nil {
			return contracts.MomentumScore{}, err
		}
		if len(bars) < scoring.MinHistoryBars {
			return contracts.MomentumScore{}, &contracts.InsufficientHistoryError{
				Symbol:   symbol,
				Bars:     len(bars),
				Required: scoring.MinHistoryBars,
			}
		}
		return a.engine.Score(symbol, bars, asOf)
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s  as of %s (prices through %s)\n\n",
		score.Symbol, score.CalculationDate.Format("2006-01-02"), score.LastPriceDate.Format("2006-01-02"))
	fmt.Printf("Composite            %.4f\n\n", score.Composite)
	fmt.Printf("Raw momentum 1M      %+.4f\n", score.Sub.RawMomentum1M)
	fmt.Printf("Raw momentum 3M      %+.4f\n", score.Sub.RawMomentum3M)
	fmt.Printf("Raw momentum 6M      %+.4f\n", score.Sub.RawMomentum6M)
	fmt.Printf("Momentum 12-2        %+.4f\n", score.Sub.Momentum12_2)
	fmt.Printf("Smooth momentum      %+.4f\n", score.Sub.SmoothMomentum)
	fmt.Printf("Vol-adjusted         %+.4f\n", score.Sub.VolatilityAdjusted)
	fmt.Printf("Consistency          %.4f\n", score.Sub.Consistency)
	fmt.Printf("Trend strength       %.1f\n", score.Sub.TrendStrength)
	fmt.Printf("Volume score         %.4f\n", score.Sub.VolumeScore)
	return nil
}
