// Package model defines the data types shared by every component of the
// workflow gate: skills, profiles, route decisions, session state, and the
// small set of sentinel errors components classify failures into.
package model

import "errors"

// Sentinel error kinds. Components wrap one of these with fmt.Errorf("%w: ...")
// so callers can classify failures with errors.Is without parsing strings.
var (
	// ErrConfigError indicates malformed YAML/JSON or a missing required field.
	// Fatal at load time.
	ErrConfigError = errors.New("config error")

	// ErrValidationError indicates skills/profiles reference unknown capabilities,
	// or a default profile is missing. Fatal iff the issue list is non-empty.
	ErrValidationError = errors.New("validation error")

	// ErrResolutionError indicates the capability resolver found no provider for a
	// required capability, or an unavoidable conflict. Propagated as activation failure.
	ErrResolutionError = errors.New("resolution error")

	// ErrStateCorruption indicates an unreadable or malformed session file. Treated
	// as "no session" on read paths; fatal on write paths.
	ErrStateCorruption = errors.New("state corruption")

	// ErrEvidenceError indicates a predicate evaluator failure (e.g. a command
	// timeout). The predicate evaluates to unsatisfied; this is captured in the detail.
	ErrEvidenceError = errors.New("evidence error")

	// ErrRetryExhausted indicates the corrective middleware exceeded max_retries.
	// Terminal; the last rejection reason is emitted alongside it.
	ErrRetryExhausted = errors.New("retry exhausted")

	// ErrSessionNotFound indicates no session exists for the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrProfileNotFound indicates activation referenced a profile unknown to the corpus.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrConflict indicates a selected skill conflicts with one already in the chain.
	ErrConflict = errors.New("skill conflict")
)

// ConflictError names the two skills involved in a chain conflict (§4.C step 2).
type ConflictError struct {
	Skill     string
	Conflicts string
}

func (e *ConflictError) Error() string {
	return "skill " + e.Skill + " conflicts with " + e.Conflicts + " already in chain"
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ValidationIssue is one entry in the validation-error list produced by the
// config loader and by capability cross-referencing.
type ValidationIssue struct {
	File    string
	Path    string
	Message string
}
