package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/fip/internal/scheduler"
	"github.com/wonny/fip/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the background job scheduler",
	Long: `Start the background scheduler.

Jobs:
  score_refresh - warms the score cache for the top-N universe after the
                  market close (SCHEDULER_REFRESH_SPEC)

Example:
  fip scheduler
  fip scheduler --now   # also trigger an immediate refresh`,
	RunE: runScheduler,
}

var schedulerRunNow bool

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().BoolVar(&schedulerRunNow, "now", false, "run the refresh job immediately on startup")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Scheduler.RefreshEnabled {
		return fmt.Errorf("scheduler is disabled (SCHEDULER_REFRESH_ENABLED=false)")
	}

	sched := scheduler.New(a.logger)

	refreshJob := jobs.NewScoreRefreshJob(
		a.store,
		a.engine,
		a.cache,
		a.cfg.Scheduler.RefreshSpec,
		a.cfg.Scheduler.RefreshTopN,
		a.cfg.Engine.StageConcurrency,
		a.logger,
	)
	if err := sched.AddJob(refreshJob); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	if schedulerRunNow {
		if err := sched.RunJob(refreshJob.Name()); err != nil {
			return err
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	a.logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	return nil
}
