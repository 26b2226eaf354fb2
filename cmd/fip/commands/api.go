package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fip/internal/api"
	"github.com/wonny/fip/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the REST API server.

Endpoints:
  GET  /health               - Health check
  POST /api/pipeline/run     - Execute a strategy pipeline
  GET  /api/strategies       - List available strategies
  GET  /api/rank             - Run one strategy over the universe (ranked top-N)
  GET  /api/scores           - Top stored scores for a date
  GET  /api/scores/{symbol}  - Score history for one symbol
  GET  /ws/pipeline          - Pipeline progress stream (websocket)

Example:
  fip api
  fip api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	pipelineHandler := handlers.NewPipelineHandler(a.executor, a.registry, a.logger)
	rankHandler := handlers.NewRankHandler(a.registry, a.store, a.logger)
	scoreHandler := handlers.NewScoreHandler(a.repo, a.logger)
	wsHandler := handlers.NewWSHandler(a.events, a.logger)

	router := api.NewRouter(pipelineHandler, rankHandler, scoreHandler, wsHandler, a.logger)
	server := api.New(a.cfg, a.logger, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
