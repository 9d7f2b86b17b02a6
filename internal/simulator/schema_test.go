package simulator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSteps(t *testing.T) {
	limits := Limits{MaxSteps: 10, MaxDepth: 3}

	t.Run("compiles a valid tree", func(t *testing.T) {
		steps, err := CompileSteps([]StepConfig{
			{
				Name: "gather",
				Type: "processing",
				Substeps: []StepConfig{
					{Name: "read_db", Type: "database", Attributes: map[string]string{"table": "users"}},
				},
			},
		}, limits)
		require.NoError(t, err)
		require.Len(t, steps, 1)

		gather := steps[0]
		assert.Equal(t, OpProcessing, gather.Type)
		assert.Equal(t, StatusPending, gather.Status)
		require.Len(t, gather.Substeps, 1)
		assert.Equal(t, "users", gather.Substeps[0].Attributes["table"])
	})

	t.Run("applies the default delay", func(t *testing.T) {
		steps, err := CompileSteps([]StepConfig{
			{Name: "quick", Type: "cache"},
		}, limits)
		require.NoError(t, err)
		assert.Equal(t, 100*time.Millisecond, steps[0].Delay)
	})

	t.Run("rejects a missing name", func(t *testing.T) {
		_, err := CompileSteps([]StepConfig{{Type: "cache"}}, limits)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidWorkflow)
		assert.Contains(t, err.Error(), "name is required")
	})

	t.Run("rejects an unknown operation type", func(t *testing.T) {
		_, err := CompileSteps([]StepConfig{{Name: "x", Type: "blockchain"}}, limits)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidWorkflow)

		var unknownOp *UnknownOperationError
		require.ErrorAs(t, err, &unknownOp)
		assert.Equal(t, "blockchain", unknownOp.Op)
	})

	t.Run("rejects an unknown type inside substeps", func(t *testing.T) {
		_, err := CompileSteps([]StepConfig{
			{
				Name: "outer",
				Type: "processing",
				Substeps: []StepConfig{
					{Name: "inner", Type: "telepathy"},
				},
			},
		}, limits)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidWorkflow)
	})

	t.Run("enforces the step count limit", func(t *testing.T) {
		cfgs := make([]StepConfig, 11)
		for i := range cfgs {
			cfgs[i] = StepConfig{Name: "step", Type: "cache"}
		}
		_, err := CompileSteps(cfgs, limits)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidWorkflow)
		assert.Contains(t, err.Error(), "exceeds limit")
	})

	t.Run("enforces the depth limit", func(t *testing.T) {
		deep := StepConfig{Name: "l4", Type: "cache"}
		for _, name := range []string{"l3", "l2", "l1"} {
			deep = StepConfig{Name: name, Type: "processing", Substeps: []StepConfig{deep}}
		}
		_, err := CompileSteps([]StepConfig{deep}, limits)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidWorkflow)
		assert.Contains(t, err.Error(), "depth")
	})

	t.Run("zero limits disable the guards", func(t *testing.T) {
		cfgs := make([]StepConfig, 50)
		for i := range cfgs {
			cfgs[i] = StepConfig{Name: "step", Type: "cache"}
		}
		_, err := CompileSteps(cfgs, Limits{})
		require.NoError(t, err)
	})
}

func TestRequestJSON(t *testing.T) {
	raw := `{
		"name": "checkout",
		"steps": [
			{
				"name": "charge",
				"operation_type": "http",
				"delay": "250ms",
				"fail": true,
				"fail_message": "card declined",
				"substeps": [
					{"name": "lookup_customer", "operation_type": "database"}
				]
			}
		]
	}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(raw), &req))

	assert.Equal(t, "checkout", req.Name)
	require.Len(t, req.Steps, 1)
	charge := req.Steps[0]
	assert.Equal(t, "http", charge.Type)
	assert.Equal(t, 250*time.Millisecond, charge.Delay.Duration())
	assert.True(t, charge.Fail)
	assert.Equal(t, "card declined", charge.FailMessage)
	require.Len(t, charge.Substeps, 1)
	assert.Equal(t, "lookup_customer", charge.Substeps[0].Name)
}
