// Package workflow implements the Workflow Enforcer (spec.md §4.K), an
// alternative core to the Capability Resolver + Chain Activator pair for
// profiles whose progression is defined in code as an ordered sequence of
// phases rather than resolved from a skill graph.
package workflow

import (
	"fmt"

	"github.com/skillgate/skillgate/internal/model"
)

// Phase is one stage of a code-defined workflow.
type Phase struct {
	Name           string
	Provides       []string
	Requires       []string
	BlockedIntents map[string]string // intent -> reason
	AllowedIntents []string
}

// Machine is a pure in-memory phase state machine. It holds no reference to
// a session store or any other I/O collaborator: callers snapshot/restore
// its state as part of whatever SessionState they persist.
type Machine struct {
	phases    []Phase
	current   int
	satisfied map[string]struct{}
}

// New constructs a Machine starting at the first phase whose Requires are
// already met (typically the first phase, which requires nothing).
func New(phases []Phase) (*Machine, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("%w: workflow requires at least one phase", model.ErrConfigError)
	}
	m := &Machine{phases: phases, satisfied: make(map[string]struct{})}
	m.current = m.firstEligiblePhase(0)
	return m, nil
}

// CurrentPhase returns the active phase's name.
func (m *Machine) CurrentPhase() string {
	return m.phases[m.current].Name
}

// Done reports whether the workflow has advanced past its final phase.
func (m *Machine) Done() bool {
	return m.current >= len(m.phases)
}

// Satisfy records a capability as satisfied and advances the machine:
// CapabilitySatisfied advances to the next phase whose Requires are met
// once every Provides of the current phase has been satisfied.
func (m *Machine) Satisfy(capability string) {
	m.satisfied[capability] = struct{}{}
	if m.Done() {
		return
	}
	if !m.phaseComplete(m.phases[m.current]) {
		return
	}
	m.current = m.firstEligiblePhase(m.current + 1)
}

// Reset returns the machine to its initial phase and clears satisfied
// capabilities.
func (m *Machine) Reset() {
	m.satisfied = make(map[string]struct{})
	m.current = m.firstEligiblePhase(0)
}

func (m *Machine) phaseComplete(p Phase) bool {
	for _, provided := range p.Provides {
		if _, ok := m.satisfied[provided]; !ok {
			return false
		}
	}
	return true
}

func (m *Machine) requiresMet(p Phase) bool {
	for _, req := range p.Requires {
		if _, ok := m.satisfied[req]; !ok {
			return false
		}
	}
	return true
}

func (m *Machine) firstEligiblePhase(from int) int {
	for i := from; i < len(m.phases); i++ {
		if m.requiresMet(m.phases[i]) {
			return i
		}
	}
	return len(m.phases)
}

// IsAllowed reports whether intent is permitted under strictness in the
// current phase, under the same rules as the Enforcement Hook (§4.H):
// strict blocks, advisory warns (callers surface a warning but still treat
// the return as allowed), permissive always allows.
func (m *Machine) IsAllowed(intent string, strictness model.Strictness) (allowed bool, reason string) {
	if m.Done() {
		return true, ""
	}
	phase := m.phases[m.current]
	reason, blocked := phase.BlockedIntents[intent]
	if !blocked {
		return true, ""
	}
	switch strictness {
	case model.StrictnessStrict:
		return false, reason
	default:
		return true, reason
	}
}

// BlockedIntents returns the current phase's blocked-intent map, suitable
// for embedding into a model.SessionState alongside a resolver-produced
// chain.
func (m *Machine) BlockedIntents() map[string]string {
	if m.Done() {
		return map[string]string{}
	}
	out := make(map[string]string, len(m.phases[m.current].BlockedIntents))
	for k, v := range m.phases[m.current].BlockedIntents {
		out[k] = v
	}
	return out
}
