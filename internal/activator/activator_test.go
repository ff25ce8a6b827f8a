package activator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillgate/skillgate/internal/capability"
	"github.com/skillgate/skillgate/internal/model"
	"github.com/skillgate/skillgate/internal/session/filestore"
)

func testActivator(t *testing.T) *Activator {
	t.Helper()
	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	resolver := capability.New([]model.Skill{
		{Name: "scaffold", Provides: []string{"scaffolding"}, Risk: model.RiskLow, Cost: model.CostLow},
	})

	act, err := New(Options{
		Store:    store,
		Resolver: resolver,
		Profiles: []model.Profile{
			{Name: "ship-feature", CapabilitiesRequired: []string{"scaffolding"}, Strictness: model.StrictnessStrict,
				Priority: 5, Match: []string{"ship it"}},
			{Name: "bug-fix", CapabilitiesRequired: []string{"scaffolding"}, Strictness: model.StrictnessStrict,
				Priority: 10, Match: []string{"fix the bug"}},
		},
	})
	require.NoError(t, err)
	return act
}

func TestActivateMintsAndPersistsSession(t *testing.T) {
	act := testActivator(t)
	state, err := act.Activate(context.Background(), "req-1", "ship-feature")
	require.NoError(t, err)
	assert.NotEmpty(t, state.SessionID)
	assert.Equal(t, []string{"scaffold"}, state.Chain)
}

func TestActivateIdempotentByRequestID(t *testing.T) {
	act := testActivator(t)
	ctx := context.Background()
	first, err := act.Activate(ctx, "req-1", "ship-feature")
	require.NoError(t, err)
	second, err := act.Activate(ctx, "req-1", "ship-feature")
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestActivateUnknownProfile(t *testing.T) {
	act := testActivator(t)
	_, err := act.Activate(context.Background(), "req-2", "nonexistent")
	assert.ErrorIs(t, err, model.ErrProfileNotFound)
}

func TestActivateFromDecisionChatModeNeverActivates(t *testing.T) {
	act := testActivator(t)
	outcome, err := act.ActivateFromDecision(context.Background(), model.RouteDecision{Mode: model.ModeChat})
	require.NoError(t, err)
	assert.False(t, outcome.Activated)
	assert.Equal(t, "chat mode", outcome.Reason)
}

func TestActivateFromDecisionPrefersSelectedProfile(t *testing.T) {
	act := testActivator(t)
	outcome, err := act.ActivateFromDecision(context.Background(), model.RouteDecision{
		RequestID: "req-3", Mode: model.ModeImmediate, SelectedProfile: "ship-feature",
		Candidates: []model.Candidate{{SkillName: "bug-fix"}},
	})
	require.NoError(t, err)
	assert.True(t, outcome.Activated)
	assert.Equal(t, "ship-feature", outcome.State.ProfileID)
}

func TestActivateFromDecisionFallsBackToTopCandidateName(t *testing.T) {
	act := testActivator(t)
	outcome, err := act.ActivateFromDecision(context.Background(), model.RouteDecision{
		RequestID: "req-4", Mode: model.ModeImmediate,
		Candidates: []model.Candidate{{SkillName: "bug-fix"}},
	})
	require.NoError(t, err)
	assert.True(t, outcome.Activated)
	assert.Equal(t, "bug-fix", outcome.State.ProfileID)
}

func TestActivateFromDecisionFallsBackToMatchPatternHighestPriority(t *testing.T) {
	act := testActivator(t)
	outcome, err := act.ActivateFromDecision(context.Background(), model.RouteDecision{
		RequestID: "req-5", Mode: model.ModeImmediate, Query: "please fix the bug and ship it",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Activated)
	assert.Equal(t, "bug-fix", outcome.State.ProfileID)
}

func TestActivateFromDecisionNoMatchErrors(t *testing.T) {
	act := testActivator(t)
	_, err := act.ActivateFromDecision(context.Background(), model.RouteDecision{
		RequestID: "req-6", Mode: model.ModeImmediate, Query: "nothing relevant here",
	})
	assert.ErrorIs(t, err, model.ErrProfileNotFound)
}
