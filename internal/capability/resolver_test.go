package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillgate/skillgate/internal/model"
)

func baseSkills() []model.Skill {
	return []model.Skill{
		{Name: "scaffold", Provides: []string{"scaffolding"}, Risk: model.RiskLow, Cost: model.CostLow},
		{
			Name:     "write-tests",
			Provides: []string{"tests"},
			Requires: []string{"scaffolding"},
			Risk:     model.RiskLow, Cost: model.CostMedium,
			ToolPolicy: model.ToolPolicy{
				DenyUntil: map[string]model.DenyUntil{
					"edit_prod_code": {Until: "tests", Reason: "write tests first"},
				},
			},
		},
		{Name: "deploy", Provides: []string{"deployment"}, Requires: []string{"tests"}, Risk: model.RiskHigh, Cost: model.CostHigh},
	}
}

func TestResolveOrdersByDependency(t *testing.T) {
	r := New(baseSkills())
	profile := model.Profile{
		Name:                 "ship-feature",
		CapabilitiesRequired: []string{"scaffolding", "tests", "deployment"},
		Strictness:           model.StrictnessStrict,
	}
	res, err := r.Resolve(profile)
	require.NoError(t, err)
	assert.Equal(t, []string{"scaffold", "write-tests", "deploy"}, res.Chain)
}

func TestResolveMissingProviderStrictFails(t *testing.T) {
	r := New(baseSkills())
	profile := model.Profile{
		CapabilitiesRequired: []string{"nonexistent"},
		Strictness:           model.StrictnessStrict,
	}
	_, err := r.Resolve(profile)
	assert.ErrorIs(t, err, model.ErrResolutionError)
}

func TestResolveMissingProviderAdvisoryWarns(t *testing.T) {
	r := New(baseSkills())
	profile := model.Profile{
		CapabilitiesRequired: []string{"nonexistent"},
		Strictness:           model.StrictnessAdvisory,
	}
	res, err := r.Resolve(profile)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "nonexistent")
}

func TestResolveConflictStrictFails(t *testing.T) {
	skills := baseSkills()
	skills = append(skills, model.Skill{
		Name: "hotfix-direct", Provides: []string{"deployment"}, Conflicts: []string{"deploy"},
	})
	// Force the conflicting pair to both be selected by requiring a capability only
	// "deploy" provides and giving "hotfix-direct" the same provide so tie-break
	// picks deterministically — instead verify conflict detection via direct skills.
	skills[2].Conflicts = []string{"write-tests"}
	r := New(skills)
	profile := model.Profile{
		CapabilitiesRequired: []string{"scaffolding", "tests", "deployment"},
		Strictness:           model.StrictnessStrict,
	}
	_, err := r.Resolve(profile)
	assert.ErrorIs(t, err, model.ErrResolutionError)
}

func TestResolveBlockedIntents(t *testing.T) {
	r := New(baseSkills())
	profile := model.Profile{
		CapabilitiesRequired: []string{"scaffolding", "tests"},
		Strictness:           model.StrictnessStrict,
	}
	res, err := r.Resolve(profile)
	require.NoError(t, err)
	assert.Contains(t, res.BlockedIntents, "edit_prod_code")
}

func TestResolveDeterministicTieBreakByRiskThenCost(t *testing.T) {
	skills := []model.Skill{
		{Name: "zeta-provider", Provides: []string{"x"}, Risk: model.RiskHigh, Cost: model.CostLow},
		{Name: "alpha-provider", Provides: []string{"x"}, Risk: model.RiskLow, Cost: model.CostHigh},
	}
	r := New(skills)
	profile := model.Profile{CapabilitiesRequired: []string{"x"}, Strictness: model.StrictnessAdvisory}
	res, err := r.Resolve(profile)
	require.NoError(t, err)
	require.Len(t, res.Chain, 1)
	assert.Equal(t, "alpha-provider", res.Chain[0], "lower risk must win regardless of name")
}
