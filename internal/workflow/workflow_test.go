package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillgate/skillgate/internal/model"
)

func samplePhases() []Phase {
	return []Phase{
		{
			Name:           "design",
			Provides:       []string{"design-doc"},
			BlockedIntents: map[string]string{"edit_impl": "write the design doc first"},
		},
		{
			Name:           "build",
			Requires:       []string{"design-doc"},
			Provides:       []string{"implementation"},
			BlockedIntents: map[string]string{"run_command": "no commands until design is done"},
		},
		{
			Name:     "verify",
			Requires: []string{"implementation"},
			Provides: []string{"verified"},
		},
	}
}

func TestNewStartsAtFirstEligiblePhase(t *testing.T) {
	m, err := New(samplePhases())
	require.NoError(t, err)
	assert.Equal(t, "design", m.CurrentPhase())
}

func TestSatisfyAdvancesThroughPhases(t *testing.T) {
	m, err := New(samplePhases())
	require.NoError(t, err)

	m.Satisfy("design-doc")
	assert.Equal(t, "build", m.CurrentPhase())

	m.Satisfy("implementation")
	assert.Equal(t, "verify", m.CurrentPhase())

	m.Satisfy("verified")
	assert.True(t, m.Done())
}

func TestSatisfyPartialDoesNotAdvance(t *testing.T) {
	m, err := New(samplePhases())
	require.NoError(t, err)
	m.Satisfy("unrelated-capability")
	assert.Equal(t, "design", m.CurrentPhase())
}

func TestIsAllowedBlocksInStrictMode(t *testing.T) {
	m, err := New(samplePhases())
	require.NoError(t, err)
	allowed, reason := m.IsAllowed("edit_impl", model.StrictnessStrict)
	assert.False(t, allowed)
	assert.Equal(t, "write the design doc first", reason)
}

func TestIsAllowedWarnsInAdvisoryMode(t *testing.T) {
	m, err := New(samplePhases())
	require.NoError(t, err)
	allowed, reason := m.IsAllowed("edit_impl", model.StrictnessAdvisory)
	assert.True(t, allowed)
	assert.NotEmpty(t, reason)
}

func TestResetReturnsToFirstPhase(t *testing.T) {
	m, err := New(samplePhases())
	require.NoError(t, err)
	m.Satisfy("design-doc")
	m.Satisfy("implementation")
	m.Reset()
	assert.Equal(t, "design", m.CurrentPhase())
}

func TestNewRejectsEmptyPhaseList(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, model.ErrConfigError)
}
