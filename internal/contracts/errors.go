package contracts

import "fmt"

// InsufficientHistoryError signals that a price series is too short to score.
// Recoverable: strategies drop the stock from the candidate set instead of
// ranking it last or scoring it zero.
type InsufficientHistoryError struct {
	Symbol   string
	Bars     int
	Required int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: have %d bars, need %d", e.Symbol, e.Bars, e.Required)
}

// PipelineConfigError reports an invalid stage chain.
// Fatal, raised during validation before any stage executes.
type PipelineConfigError struct {
	Stage  int
	Field  string
	Reason string
}

func (e *PipelineConfigError) Error() string {
	return fmt.Sprintf("pipeline config: stage %d %s: %s", e.Stage, e.Field, e.Reason)
}

// StageExecutionError wraps an unexpected failure inside a stage.
// Fatal to the whole run; carries the stage index so the caller can render a
// precise message. The executor attaches the partial trace to its result.
type StageExecutionError struct {
	Stage      int
	StrategyID string
	Err        error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage %d (%s) failed: %v", e.Stage, e.StrategyID, e.Err)
}

func (e *StageExecutionError) Unwrap() error {
	return e.Err
}

// CacheContentionError reports that waiting on another caller's in-flight
// computation exceeded the configured timeout. Recoverable per key.
type CacheContentionError struct {
	Symbol string
}

func (e *CacheContentionError) Error() string {
	return fmt.Sprintf("score computation for %s timed out waiting on in-flight compute", e.Symbol)
}
