// Package simulator executes demo workflows that generate trace output of
// varying shapes.
//
// A workflow is an ordered tree of steps. One execution engine drives all
// three tiers: the simple tier reports only name/duration/status per step,
// the medium tier additionally captures timestamps and the nested substep
// breakdown, and the complex tier opens one tracing span per step with
// attributes mirroring the step hierarchy. Execution is strictly sequential
// and depth-first; a run never outlives its first failure.
package simulator

import (
	"time"
)

// OperationType labels what kind of work a step pretends to do. It drives
// span attributes only; every operation type executes the same way.
type OperationType string

const (
	OpDatabase       OperationType = "database"
	OpHTTP           OperationType = "http"
	OpQueue          OperationType = "queue"
	OpCache          OperationType = "cache"
	OpProcessing     OperationType = "processing"
	OpValidation     OperationType = "validation"
	OpTransformation OperationType = "transformation"
	OpExport         OperationType = "export"
)

// OperationTypes lists every valid operation type, in the order they are
// reported to clients on validation failures.
func OperationTypes() []OperationType {
	return []OperationType{
		OpDatabase, OpHTTP, OpQueue, OpCache,
		OpProcessing, OpValidation, OpTransformation, OpExport,
	}
}

// Valid reports whether the operation type is one of the known values.
func (o OperationType) Valid() bool {
	switch o {
	case OpDatabase, OpHTTP, OpQueue, OpCache,
		OpProcessing, OpValidation, OpTransformation, OpExport:
		return true
	}
	return false
}

// Status is the lifecycle state of a step or a whole run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Step is one schedulable unit in a workflow tree.
//
// Substeps execute before the step's own simulated work; the step completes
// only after every substep has completed (post-order). A step configured
// with Fail produces a simulated failure after its delay elapses.
//
// A Step belongs to exactly one run. Execution mutates the status and
// timing fields in place; build a fresh tree per run.
type Step struct {
	Name        string
	Type        OperationType
	Delay       time.Duration
	Attributes  map[string]string
	Substeps    []*Step
	Fail        bool
	FailMessage string

	// Set during execution.
	Status      Status
	Err         error
	StartedAt   time.Time
	CompletedAt time.Time
	Elapsed     time.Duration
}

// NewStep creates a pending step.
func NewStep(name string, op OperationType, delay time.Duration, substeps ...*Step) *Step {
	return &Step{
		Name:     name,
		Type:     op,
		Delay:    delay,
		Substeps: substeps,
		Status:   StatusPending,
	}
}

// countSteps returns the total number of steps in the trees, including
// every nested substep.
func countSteps(steps []*Step) int {
	n := 0
	for _, s := range steps {
		n += 1 + countSteps(s.Substeps)
	}
	return n
}

// maxDepth returns the deepest nesting level in the trees. A flat list has
// depth 1.
func maxDepth(steps []*Step) int {
	deepest := 0
	for _, s := range steps {
		d := 1 + maxDepth(s.Substeps)
		if d > deepest {
			deepest = d
		}
	}
	return deepest
}
