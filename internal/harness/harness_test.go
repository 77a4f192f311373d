package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioDir = "testdata/scenarios"

func TestRun_AllScenariosPass(t *testing.T) {
	scenarios, err := LoadDir(scenarioDir)
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.True(t, result.Deterministic)
		})
	}
}

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"pulse_end_to_end", "delete_range"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join(scenarioDir, name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
description: expects the wrong count
tick_rate: 10
app: {self_step: 2}
initial: [{id: 1, count: 0}]
frames:
  - steps: 3
expect:
  ticks: 2
  entities: [{id: 1, count: 5}]
  halted: true
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "ticks: expected 2, actual 3")
	assert.Contains(t, result.Errors[1], "halted")
	assert.Contains(t, result.Errors[2], "entities: expected [1:5], actual [1:6]")
	assert.True(t, result.Deterministic, "a failing expectation is still a deterministic run")
}

func TestRun_StepsStopAtShutdown(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: steps_shutdown
description: forced steps stop once halted
tick_rate: 10
app: {self_step: 1}
initial: [{id: 1, count: 0}]
frames:
  - steps: 5
    inputs: [{shutdown: true}]
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.Ticks)
	assert.True(t, result.Halted)
	assert.Equal(t, []EntityState{{ID: 1, Count: 1}}, result.Final)
}

func TestRun_TraceShape(t *testing.T) {
	s, err := LoadScenario(filepath.Join(scenarioDir, "pulse_end_to_end.yaml"))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	var types []string
	for _, ev := range result.Trace {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{TraceTick, TraceTick, TraceTick, TraceFrame, TraceTick, TraceFrame}, types)
	assert.Len(t, result.Digest, 64)
	assert.Equal(t, uint64(1), result.Seed)
}

func TestEvaluateExpect_AlphaTolerance(t *testing.T) {
	alpha := 0.5
	r := &Result{Alpha: 0.5004}

	assert.Len(t, EvaluateExpect(r, Expect{Alpha: &alpha}), 1)
	assert.Empty(t, EvaluateExpect(r, Expect{Alpha: &alpha, AlphaTolerance: 0.001}))
}
