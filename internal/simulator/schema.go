package simulator

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/otelsim/internal/config"
)

// StepConfig is the wire representation of a workflow step, accepted in
// request bodies and compiled into a Step tree before execution.
type StepConfig struct {
	Name        string            `json:"name"`
	Type        string            `json:"operation_type"`
	Delay       config.Duration   `json:"delay,omitempty"`
	Fail        bool              `json:"fail,omitempty"`
	FailMessage string            `json:"fail_message,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Substeps    []StepConfig      `json:"substeps,omitempty"`
}

// Request describes one workflow run: an optional name plus optional custom
// steps. With no steps, the variant's built-in default workflow runs.
type Request struct {
	Name  string       `json:"name"`
	Steps []StepConfig `json:"steps,omitempty"`
}

// Limits guards request-supplied workflow definitions against absurd trees.
type Limits struct {
	MaxSteps int
	MaxDepth int
}

const defaultStepDelay = 100 * time.Millisecond

// CompileSteps validates step configs and builds a fresh Step tree.
//
// Every returned error wraps ErrInvalidWorkflow.
func CompileSteps(cfgs []StepConfig, limits Limits) ([]*Step, error) {
	if limits.MaxSteps > 0 {
		if n := countConfigs(cfgs); n > limits.MaxSteps {
			return nil, fmt.Errorf("%w: %d steps exceeds limit of %d", ErrInvalidWorkflow, n, limits.MaxSteps)
		}
	}
	if limits.MaxDepth > 0 {
		if d := configDepth(cfgs); d > limits.MaxDepth {
			return nil, fmt.Errorf("%w: nesting depth %d exceeds limit of %d", ErrInvalidWorkflow, d, limits.MaxDepth)
		}
	}
	return compileSteps(cfgs)
}

func compileSteps(cfgs []StepConfig) ([]*Step, error) {
	steps := make([]*Step, 0, len(cfgs))
	for _, cfg := range cfgs {
		step, err := compileStep(cfg)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func compileStep(cfg StepConfig) (*Step, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: step name is required", ErrInvalidWorkflow)
	}

	op := OperationType(cfg.Type)
	if !op.Valid() {
		return nil, &UnknownOperationError{Op: cfg.Type}
	}

	delay := cfg.Delay.Duration()
	if delay == 0 {
		delay = defaultStepDelay
	}

	substeps, err := compileSteps(cfg.Substeps)
	if err != nil {
		return nil, err
	}

	var attrs map[string]string
	if len(cfg.Attributes) > 0 {
		attrs = make(map[string]string, len(cfg.Attributes))
		for k, v := range cfg.Attributes {
			attrs[k] = v
		}
	}

	return &Step{
		Name:        cfg.Name,
		Type:        op,
		Delay:       delay,
		Attributes:  attrs,
		Substeps:    substeps,
		Fail:        cfg.Fail,
		FailMessage: cfg.FailMessage,
		Status:      StatusPending,
	}, nil
}

func countConfigs(cfgs []StepConfig) int {
	n := 0
	for _, c := range cfgs {
		n += 1 + countConfigs(c.Substeps)
	}
	return n
}

func configDepth(cfgs []StepConfig) int {
	deepest := 0
	for _, c := range cfgs {
		d := 1 + configDepth(c.Substeps)
		if d > deepest {
			deepest = d
		}
	}
	return deepest
}
