package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/strategy"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank the universe with one strategy",
	Long: `Run a single scoring strategy over the largest stocks by market cap
and print the ranked top-N.

Example:
  fip rank
  fip rank --strategy low_volatility --universe 200 --top 20
  fip rank --strategy momentum --sector Technology --as-of 2026-08-25`,
	RunE: runRank,
}

var (
	rankStrategy string
	rankUniverse int
	rankTop      int
	rankSector   string
	rankIndustry string
	rankAsOf     string
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVar(&rankStrategy, "strategy", strategy.MomentumID, "strategy id (see GET /api/strategies)")
	rankCmd.Flags().IntVar(&rankUniverse, "universe", 200, "universe size, largest by market cap")
	rankCmd.Flags().IntVar(&rankTop, "top", 20, "how many stocks to keep")
	rankCmd.Flags().StringVar(&rankSector, "sector", "", "restrict the universe to one sector")
	rankCmd.Flags().StringVar(&rankIndustry, "industry", "", "restrict the universe to one industry")
	rankCmd.Flags().StringVar(&rankAsOf, "as-of", "", "evaluation date YYYY-MM-DD (default: latest trading day)")
}

func runRank(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	strat, err := a.registry.Get(rankStrategy)
	if err != nil {
		return err
	}

	var asOf time.Time
	if rankAsOf != "" {
		asOf, err = time.Parse("2006-01-02", rankAsOf)
		if err != nil {
			return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
		}
	} else {
		asOf, err = a.store.LatestTradingDay(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
	}

	input, err := a.store.ListUniverse(ctx, contracts.UniverseFilter{
		Sector:   rankSector,
		Industry: rankIndustry,
		Limit:    rankUniverse,
	})
	if err != nil {
		return err
	}
	if len(input) == 0 {
		return fmt.Errorf("no stocks match the universe filter")
	}

	res, err := strat.Execute(ctx, strategy.Request{
		Input:       input,
		OutputCount: rankTop,
		AsOf:        asOf,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s: top %d of %d, %s (dropped %d)\n\n",
		strat.Name(), len(res.Stocks), res.Metrics.Input, asOf.Format("2006-01-02"), res.Metrics.Dropped)
	fmt.Printf("%-4s %-8s %-28s %-12s %s\n", "#", "SYMBOL", "NAME", "SECTOR", "SCORE")
	for i, r := range res.Stocks {
		fmt.Printf("%-4d %-8s %-28s %-12s %.4f\n",
			i+1, r.Stock.Symbol, truncate(r.Stock.Name, 28), truncate(r.Stock.Sector, 12), r.Score)
	}
	return nil
}
