package simulator

import (
	"time"
)

// Variant selects the simulator tier.
type Variant string

const (
	// VariantSimple runs steps with no instrumentation; the result carries
	// only name, duration, and status per top-level step.
	VariantSimple Variant = "simple"

	// VariantMedium records start/end timestamps and the full nested
	// substep breakdown, still without emitting spans.
	VariantMedium Variant = "medium"

	// VariantComplex additionally mirrors the step tree as a span tree on
	// the tracing backend.
	VariantComplex Variant = "complex"
)

// Valid reports whether the variant is one of the known tiers.
func (v Variant) Valid() bool {
	switch v {
	case VariantSimple, VariantMedium, VariantComplex:
		return true
	}
	return false
}

// StepResult is an immutable snapshot of one executed (or skipped) step.
//
// StartedAt/CompletedAt and Substeps are populated only when the run
// captured per-step detail (medium and complex tiers).
type StepResult struct {
	Name       string        `json:"name"`
	Type       OperationType `json:"operation_type"`
	Status     Status        `json:"status"`
	DurationMS float64       `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`

	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Substeps    []StepResult `json:"substeps,omitempty"`
}

// Result summarizes one workflow run.
//
// Status is failed if and only if at least one step failed. DurationMS is
// wall-clock time from first step start to last step end, not the sum of
// step durations.
type Result struct {
	Workflow    string       `json:"workflow"`
	Variant     Variant      `json:"variant"`
	RunID       string       `json:"run_id"`
	Status      Status       `json:"status"`
	Error       string       `json:"error,omitempty"`
	FailedStep  string       `json:"failed_step,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	DurationMS  float64      `json:"duration_ms"`
	Steps       []StepResult `json:"steps"`
}

// snapshotSteps converts an executed step tree into result entries.
// With detail=false, substeps and timestamps are omitted.
func snapshotSteps(steps []*Step, detail bool) []StepResult {
	if len(steps) == 0 {
		return nil
	}
	out := make([]StepResult, 0, len(steps))
	for _, s := range steps {
		out = append(out, snapshotStep(s, detail))
	}
	return out
}

func snapshotStep(s *Step, detail bool) StepResult {
	r := StepResult{
		Name:       s.Name,
		Type:       s.Type,
		Status:     s.Status,
		DurationMS: durationMS(s.Elapsed),
	}
	if s.Err != nil {
		r.Error = s.Err.Error()
	}
	if detail {
		if !s.StartedAt.IsZero() {
			started := s.StartedAt
			r.StartedAt = &started
		}
		if !s.CompletedAt.IsZero() {
			completed := s.CompletedAt
			r.CompletedAt = &completed
		}
		r.Substeps = snapshotSteps(s.Substeps, detail)
	}
	return r
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
