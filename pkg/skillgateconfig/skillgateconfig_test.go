package skillgateconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSkillsYAML = `
version: "1.0"
skills:
  - name: scaffold
    provides: [scaffolding]
    requires: []
    conflicts: []
    risk: low
    cost: low
  - name: write-tests
    provides: [tests-written]
    requires: [scaffolding]
    conflicts: []
    risk: low
    cost: medium
    tool_policy:
      deny_until:
        run_command:
          until: scaffolding
          reason: "scaffold before running commands"
`

const validProfilesYAML = `
version: "1.0"
default_profile: ship-feature
profiles:
  - name: ship-feature
    priority: 10
    capabilities_required: [scaffolding, tests-written]
    strictness: strict
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSkillsValid(t *testing.T) {
	path := writeTemp(t, "skills.yaml", validSkillsYAML)
	skills, err := LoadSkills(path)
	require.NoError(t, err)
	assert.Len(t, skills, 2)
	assert.Equal(t, "scaffold", skills[0].Name)
}

func TestLoadSkillsRejectsMissingRequiredField(t *testing.T) {
	path := writeTemp(t, "skills.yaml", `
version: "1.0"
skills:
  - name: scaffold
    provides: [scaffolding]
`)
	_, err := LoadSkills(path)
	assert.Error(t, err)
}

func TestLoadProfilesValid(t *testing.T) {
	path := writeTemp(t, "profiles.yaml", validProfilesYAML)
	profiles, defaultProfile, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.Equal(t, "ship-feature", defaultProfile)
}

func TestLoadCrossReferencesSuccessfully(t *testing.T) {
	skillsPath := writeTemp(t, "skills.yaml", validSkillsYAML)
	profilesPath := writeTemp(t, "profiles.yaml", validProfilesYAML)
	corpus, err := Load(skillsPath, profilesPath)
	require.NoError(t, err)
	assert.Len(t, corpus.Skills, 2)
	assert.Len(t, corpus.Profiles, 1)
}

func TestLoadCrossReferenceCatchesUnprovidedCapability(t *testing.T) {
	skillsPath := writeTemp(t, "skills.yaml", validSkillsYAML)
	profilesPath := writeTemp(t, "profiles.yaml", `
version: "1.0"
profiles:
  - name: ship-feature
    priority: 10
    capabilities_required: [scaffolding, nonexistent-capability]
    strictness: strict
`)
	_, err := Load(skillsPath, profilesPath)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Issues)
}
