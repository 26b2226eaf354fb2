package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/wonny/fip/internal/contracts"
	"github.com/wonny/fip/internal/strategy"
	"github.com/wonny/fip/pkg/logger"
)

// State is the pipeline run lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateValidating State = "validating"
	StateExecuting  State = "executing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// ErrEmptyStageOutput marks a stage whose output came up empty, for example
// when every candidate was dropped for insufficient history. An empty stage
// fails the run; later stages never execute on an empty universe.
var ErrEmptyStageOutput = errors.New("stage produced no stocks")

// StageTrace records one executed stage: its result and any shortfall
// against the declared output count.
type StageTrace struct {
	Stage      int             `json:"stage"`
	StrategyID string          `json:"strategy_id"`
	Result     strategy.Result `json:"result"`
	Shortfall  int             `json:"shortfall"`
}

// RunResult is the outcome of one pipeline run. On failure the stages slice
// holds the partial trace of everything that completed before the error.
type RunResult struct {
	RunID      string                 `json:"run_id"`
	Name       string                 `json:"name"`
	ConfigHash string                 `json:"config_hash"`
	State      State                  `json:"state"`
	AsOf       time.Time              `json:"as_of"`
	Stages     []StageTrace           `json:"stages"`
	Final      []strategy.StockResult `json:"final"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Error      string                 `json:"error,omitempty"`
}

// Executor runs declarative pipelines against the strategy registry.
// Stage 0 is seeded from the universe ordered by market cap; each later
// stage consumes the previous stage's output. Stages run strictly in order.
type Executor struct {
	registry *strategy.Registry
	store    contracts.PriceStore
	events   *Broadcaster
	logger   *logger.Logger
}

// NewExecutor creates a pipeline executor.
func NewExecutor(registry *strategy.Registry, store contracts.PriceStore, events *Broadcaster, log *logger.Logger) *Executor {
	return &Executor{
		registry: registry,
		store:    store,
		events:   events,
		logger:   log,
	}
}

// Run validates cfg and executes its stages in order. Config violations fail
// before any stage runs; a stage failure aborts the run with the partial
// trace attached. Producing fewer stocks than declared is recorded as a
// shortfall and the smaller set flows on, but an empty stage output fails
// the run: a completed pipeline always carries at least one stock.
func (e *Executor) Run(ctx context.Context, cfg *Config, asOf time.Time) (*RunResult, error) {
	result := &RunResult{
		RunID:     newRunID(),
		Name:      cfg.Name,
		State:     StatePending,
		AsOf:      asOf,
		StartedAt: time.Now().UTC(),
	}
	if hash, err := Hash(cfg); err == nil {
		result.ConfigHash = hash
	}

	log := e.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"pipeline": cfg.Name,
	})

	e.setState(result, StateValidating)
	if err := cfg.Validate(e.registry.Has); err != nil {
		log.WithError(err).Error("Pipeline config rejected")
		return e.fail(result, err)
	}

	e.setState(result, StateExecuting)
	log.WithField("stages", len(cfg.Stages)).Info("Pipeline run started")

	current, err := e.seed(ctx, cfg.Stages[0])
	if err != nil {
		return e.fail(result, &contracts.StageExecutionError{Stage: 0, StrategyID: cfg.Stages[0].StrategyID, Err: err})
	}

	for i, stageCfg := range cfg.Stages {
		if err := ctx.Err(); err != nil {
			return e.fail(result, &contracts.StageExecutionError{Stage: i, StrategyID: stageCfg.StrategyID, Err: err})
		}

		e.events.Publish(Event{RunID: result.RunID, Type: EventStageStarted, Stage: i, Strategy: stageCfg.StrategyID})

		trace, err := e.runStage(ctx, i, stageCfg, current, asOf)
		if err != nil {
			log.WithError(err).WithField("stage", i).Error("Pipeline stage failed")
			return e.fail(result, err)
		}

		result.Stages = append(result.Stages, trace)

		if len(trace.Result.Stocks) == 0 {
			log.WithField("stage", i).Error("Pipeline stage produced no stocks")
			return e.fail(result, &contracts.StageExecutionError{
				Stage:      i,
				StrategyID: stageCfg.StrategyID,
				Err:        ErrEmptyStageOutput,
			})
		}

		e.events.Publish(Event{
			RunID:     result.RunID,
			Type:      EventStageFinished,
			Stage:     i,
			Strategy:  stageCfg.StrategyID,
			Output:    trace.Result.Metrics.Output,
			Shortfall: trace.Shortfall,
		})

		current = make([]contracts.StockMetadata, len(trace.Result.Stocks))
		for j, r := range trace.Result.Stocks {
			current[j] = r.Stock
		}
	}

	last := result.Stages[len(result.Stages)-1]
	result.Final = last.Result.Stocks
	result.FinishedAt = time.Now().UTC()
	e.setState(result, StateCompleted)

	log.WithFields(map[string]interface{}{
		"final":   len(result.Final),
		"elapsed": result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("Pipeline run completed")

	return result, nil
}

// Events exposes the progress broadcaster for subscribers.
func (e *Executor) Events() *Broadcaster {
	return e.events
}

// seed builds the stage-0 candidate set: the largest stocks by market cap
// matching the first stage's filters.
func (e *Executor) seed(ctx context.Context, first StageConfig) ([]contracts.StockMetadata, error) {
	return e.store.ListUniverse(ctx, contracts.UniverseFilter{
		Sector:   first.SectorFilter,
		Industry: first.IndustryFilter,
		Limit:    first.InputCount,
	})
}

// runStage applies the stage filters and input truncation, executes the
// strategy, and records any shortfall against the declared output count.
func (e *Executor) runStage(ctx context.Context, idx int, cfg StageConfig, input []contracts.StockMetadata, asOf time.Time) (StageTrace, error) {
	strat, err := e.registry.Get(cfg.StrategyID)
	if err != nil {
		return StageTrace{}, &contracts.StageExecutionError{Stage: idx, StrategyID: cfg.StrategyID, Err: err}
	}

	filtered := filterStocks(input, cfg.SectorFilter, cfg.IndustryFilter)
	if len(filtered) > cfg.InputCount {
		filtered = filtered[:cfg.InputCount]
	}

	res, err := strat.Execute(ctx, strategy.Request{
		Input:       filtered,
		OutputCount: cfg.OutputCount,
		AsOf:        asOf,
	})
	if err != nil {
		return StageTrace{}, &contracts.StageExecutionError{Stage: idx, StrategyID: cfg.StrategyID, Err: err}
	}

	shortfall := cfg.OutputCount - len(res.Stocks)
	if shortfall < 0 {
		shortfall = 0
	}
	return StageTrace{
		Stage:      idx,
		StrategyID: cfg.StrategyID,
		Result:     res,
		Shortfall:  shortfall,
	}, nil
}

func (e *Executor) setState(result *RunResult, state State) {
	result.State = state
	e.events.Publish(Event{RunID: result.RunID, Type: EventStateChange, State: state})
}

func (e *Executor) fail(result *RunResult, err error) (*RunResult, error) {
	result.Error = err.Error()
	result.FinishedAt = time.Now().UTC()
	e.setState(result, StateFailed)
	return result, err
}

func filterStocks(stocks []contracts.StockMetadata, sector, industry string) []contracts.StockMetadata {
	if sector == "" && industry == "" {
		return stocks
	}

	out := make([]contracts.StockMetadata, 0, len(stocks))
	for _, s := range stocks {
		if sector != "" && s.Sector != sector {
			continue
		}
		if industry != "" && s.Industry != industry {
			continue
		}
		out = append(out, s)
	}
	return out
}

func newRunID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return "run_" + hex.EncodeToString(buf)
}
