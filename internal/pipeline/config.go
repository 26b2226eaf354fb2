package pipeline

import (
	"github.com/wonny/fip/internal/contracts"
)

// StageConfig declares one stage of the chain: which strategy runs, how many
// stocks it receives, and how many it passes on. Optional sector/industry
// filters narrow the stage input before scoring.
type StageConfig struct {
	StrategyID     string `yaml:"strategy" json:"strategy"`
	InputCount     int    `yaml:"input_count" json:"input_count"`
	OutputCount    int    `yaml:"output_count" json:"output_count"`
	SectorFilter   string `yaml:"sector,omitempty" json:"sector,omitempty"`
	IndustryFilter string `yaml:"industry,omitempty" json:"industry,omitempty"`
}

// Config is a declarative pipeline: an ordered chain of stages.
type Config struct {
	Name   string        `yaml:"name" json:"name"`
	Stages []StageConfig `yaml:"stages" json:"stages"`
}

// Validate checks the chain before anything executes. knownStrategy reports
// whether a strategy ID exists. Every violation is a PipelineConfigError; the
// first one found aborts validation.
func (c *Config) Validate(knownStrategy func(string) bool) error {
	if len(c.Stages) == 0 {
		return &contracts.PipelineConfigError{Stage: 0, Field: "stages", Reason: "at least one stage required"}
	}

	for i, stage := range c.Stages {
		if stage.StrategyID == "" {
			return &contracts.PipelineConfigError{Stage: i, Field: "strategy", Reason: "required"}
		}
		if !knownStrategy(stage.StrategyID) {
			return &contracts.PipelineConfigError{Stage: i, Field: "strategy", Reason: "unknown strategy " + stage.StrategyID}
		}
		if stage.InputCount <= 0 {
			return &contracts.PipelineConfigError{Stage: i, Field: "input_count", Reason: "must be > 0"}
		}
		if stage.OutputCount <= 0 {
			return &contracts.PipelineConfigError{Stage: i, Field: "output_count", Reason: "must be > 0"}
		}
		// A filter stage never produces more than it receives.
		if stage.OutputCount > stage.InputCount {
			return &contracts.PipelineConfigError{Stage: i, Field: "output_count", Reason: "must not exceed input_count"}
		}
		if i > 0 && stage.InputCount > c.Stages[i-1].OutputCount {
			return &contracts.PipelineConfigError{Stage: i, Field: "input_count", Reason: "must not exceed previous stage output_count"}
		}
	}
	return nil
}
