// Package skillgateconfig loads and validates skills.yaml and profiles.yaml:
// YAML decode, JSON-Schema validation against an embedded schema, and
// cross-reference validation ensuring every capability a profile or skill
// requires is provided by some skill.
package skillgateconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skillgate/skillgate/internal/model"
	"github.com/skillgate/skillgate/pkg/skillgateconfig/schema"
)

// skillsDocument and profilesDocument mirror the on-disk YAML layout
// (spec.md §6); Corpus unwraps them into the plain []model.Skill/[]model.Profile
// slices the rest of the system consumes.
type (
	skillsDocument struct {
		Version string        `yaml:"version"`
		Skills  []model.Skill `yaml:"skills"`
	}

	profilesDocument struct {
		Version        string          `yaml:"version"`
		DefaultProfile string          `yaml:"default_profile,omitempty"`
		Profiles       []model.Profile `yaml:"profiles"`
	}
)

// Corpus is the fully loaded and cross-validated set of skills and profiles.
type Corpus struct {
	Skills         []model.Skill
	Profiles       []model.Profile
	DefaultProfile string
}

// LoadSkills reads, schema-validates, and decodes a skills.yaml file at path.
func LoadSkills(path string) ([]model.Skill, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", model.ErrConfigError, path, err)
	}
	if err := validateYAML(path, raw, schema.SkillsSchema); err != nil {
		return nil, err
	}
	var doc skillsDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", model.ErrValidationError, path, err)
	}
	return doc.Skills, nil
}

// LoadProfiles reads, schema-validates, and decodes a profiles.yaml file at path.
func LoadProfiles(path string) ([]model.Profile, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read %s: %v", model.ErrConfigError, path, err)
	}
	if err := validateYAML(path, raw, schema.ProfilesSchema); err != nil {
		return nil, "", err
	}
	var doc profilesDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, "", fmt.Errorf("%w: decode %s: %v", model.ErrValidationError, path, err)
	}
	return doc.Profiles, doc.DefaultProfile, nil
}

// validateYAML decodes raw YAML into a generic document and validates it
// against the named embedded JSON schema, mirroring the corpus's own
// decode-then-validate-against-an-in-memory-schema sequence.
func validateYAML(path string, raw []byte, schemaFile string) error {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("%w: parse %s: %v", model.ErrValidationError, path, err)
	}
	// jsonschema validates against JSON-shaped data; round-trip through JSON
	// so YAML-specific types (e.g. map[string]any with non-string keys from
	// certain decoders) never reach the validator.
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("%w: re-marshal %s: %v", model.ErrValidationError, path, err)
	}
	var doc any
	if err := json.Unmarshal(asJSON, &doc); err != nil {
		return fmt.Errorf("%w: re-unmarshal %s: %v", model.ErrValidationError, path, err)
	}
	if err := schema.Validate(schemaFile, doc); err != nil {
		return fmt.Errorf("%w: %s: %v", model.ErrValidationError, path, err)
	}
	return nil
}

// Load loads and cross-validates both skills.yaml and profiles.yaml at the
// given paths, returning a Corpus only if every capability referenced by a
// profile's capabilities_required, a skill's requires, or a skill's
// tool_policy.deny_until.until is provided by some skill.
func Load(skillsPath, profilesPath string) (Corpus, error) {
	skills, err := LoadSkills(skillsPath)
	if err != nil {
		return Corpus{}, err
	}
	profiles, defaultProfile, err := LoadProfiles(profilesPath)
	if err != nil {
		return Corpus{}, err
	}

	issues := CrossReference(skills, profiles)
	if len(issues) > 0 {
		return Corpus{}, &ValidationError{Issues: issues}
	}

	return Corpus{Skills: skills, Profiles: profiles, DefaultProfile: defaultProfile}, nil
}

// ValidationError wraps one or more ValidationIssues produced by
// cross-reference validation.
type ValidationError struct {
	Issues []model.ValidationIssue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d validation issue(s), first: %s: %s", model.ErrValidationError, len(e.Issues), e.Issues[0].Path, e.Issues[0].Message)
}

func (e *ValidationError) Unwrap() error {
	return model.ErrValidationError
}

// CrossReference checks that every capability named by a skill's requires,
// a skill's tool_policy.deny_until.until, or a profile's
// capabilities_required is provided by some skill in skills.
func CrossReference(skills []model.Skill, profiles []model.Profile) []model.ValidationIssue {
	provided := make(map[string]struct{})
	for _, s := range skills {
		for _, p := range s.Provides {
			provided[p] = struct{}{}
		}
	}

	var issues []model.ValidationIssue
	for _, s := range skills {
		for _, req := range s.Requires {
			if _, ok := provided[req]; !ok {
				issues = append(issues, model.ValidationIssue{
					File: "skills.yaml", Path: "skills[" + s.Name + "].requires",
					Message: fmt.Sprintf("capability %q is required but not provided by any skill", req),
				})
			}
		}
		for _, dep := range s.ToolPolicy.DenyUntil {
			if _, ok := provided[dep.Until]; !ok {
				issues = append(issues, model.ValidationIssue{
					File: "skills.yaml", Path: "skills[" + s.Name + "].tool_policy.deny_until",
					Message: fmt.Sprintf("capability %q is gated on but not provided by any skill", dep.Until),
				})
			}
		}
	}
	for _, p := range profiles {
		for _, req := range p.CapabilitiesRequired {
			if _, ok := provided[req]; !ok {
				issues = append(issues, model.ValidationIssue{
					File: "profiles.yaml", Path: "profiles[" + p.Name + "].capabilities_required",
					Message: fmt.Sprintf("capability %q is required but not provided by any skill", req),
				})
			}
		}
	}
	return issues
}
