// Package hook implements the Enforcement Hook and Stop Hook (spec.md §4.H,
// §4.I): a PreToolUse gate evaluated before every tool call, and a Stop gate
// evaluated before the agent is allowed to finish, shaped after the corpus's
// policy.Engine.Decide(ctx, Input) (Decision, error) contract.
package hook

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/skillgate/skillgate/internal/capability"
	"github.com/skillgate/skillgate/internal/evidence"
	"github.com/skillgate/skillgate/internal/intent"
	"github.com/skillgate/skillgate/internal/model"
	"github.com/skillgate/skillgate/internal/session"
)

// Verdict is the enforcement outcome: Allow lets the tool call proceed;
// Block stops it (strict mode); Warn lets it proceed but records Reason
// (advisory mode). A permissive session yields Allow, with Reason still set
// when one of the call's intents was blocked.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictBlock Verdict = "block"
	VerdictWarn  Verdict = "warn"
)

// Input is the PreToolUse hook's request.
type Input struct {
	Invocation model.ToolInvocation
}

// Decision is the PreToolUse hook's response. On a block/warn, Reason,
// UnmetCapability, NextSkill and HowToProceed together carry the block
// reason, the first unmet capability, the suggested next skill from the
// chain, and a "how to proceed" hint (spec.md §4.H step 4). On an allow
// inside an active chain, CurrentSkill/NextCapability/Progress carry the
// advisory guidance message step 3 requires.
type Decision struct {
	Verdict Verdict
	Reason  string

	UnmetCapability string
	NextSkill       string
	HowToProceed    string

	CurrentSkill   string
	NextCapability string
	Progress       string
}

// Engine evaluates tool invocations against the active session's tool
// policy, and after an allowed call re-evaluates the current skill's
// artifacts so capability growth and chain advancement happen on the same
// command surface as enforcement (spec.md §4.H step 5).
type Engine struct {
	store    session.Store
	resolver *capability.Resolver
	checker  *evidence.Checker
}

// New constructs an Engine backed by store, resolver and checker. resolver
// supplies the skill catalog (for Artifacts and chain bookkeeping) and the
// shared blocked-intent/next-skill rules Resolve itself uses.
func New(store session.Store, resolver *capability.Resolver, checker *evidence.Checker) *Engine {
	return &Engine{store: store, resolver: resolver, checker: checker}
}

// Decide evaluates input against the current session's blocked intents and
// strictness. With no active session, every tool call is allowed: enforcement
// only engages once a chain has been activated. An allowed call triggers
// step-5 re-evaluation: newly satisfied artifacts grow the session's
// satisfied-capability set, blocked_intents is recomputed, and
// current_skill_index advances.
func (e *Engine) Decide(ctx context.Context, input Input) (Decision, error) {
	state, err := e.store.Current(ctx)
	if err != nil {
		if err == model.ErrSessionNotFound {
			return Decision{Verdict: VerdictAllow}, nil
		}
		return Decision{}, err
	}

	intents := intent.Classify(input.Invocation)
	reason, blockedIntent, blocked := firstBlocked(intents, state.BlockedIntents)

	if !blocked {
		g := e.reevaluate(ctx, state)
		return Decision{
			Verdict:        VerdictAllow,
			CurrentSkill:   g.CurrentSkill,
			NextCapability: g.NextCapability,
			Progress:       g.Progress,
		}, nil
	}

	d := Decision{Verdict: decisionVerdict(state.Strictness), Reason: reason}
	d.UnmetCapability, d.NextSkill, d.HowToProceed = e.blockContext(state, blockedIntent, reason)
	if d.Verdict == VerdictBlock {
		// A hard block never lets the tool call run, so there is nothing new
		// to re-check: the session's artifacts are unchanged.
		return d, nil
	}

	g := e.reevaluate(ctx, state)
	d.CurrentSkill, d.NextCapability, d.Progress = g.CurrentSkill, g.NextCapability, g.Progress
	return d, nil
}

func decisionVerdict(strictness model.Strictness) Verdict {
	switch strictness {
	case model.StrictnessStrict:
		return VerdictBlock
	case model.StrictnessAdvisory:
		return VerdictWarn
	default: // permissive
		return VerdictAllow
	}
}

// firstBlocked reports the alphabetically-first intent in intents that has a
// blocked-intent entry in blocked, so the decision is deterministic when a
// compound command (e.g. the literal commit+push scenario) carries more than
// one blocked intent at once.
func firstBlocked(intents intent.Set, blocked map[string]string) (reason string, matched intent.Intent, ok bool) {
	var names []string
	for in := range intents {
		if _, has := blocked[string(in)]; has {
			names = append(names, string(in))
		}
	}
	if len(names) == 0 {
		return "", "", false
	}
	sort.Strings(names)
	return blocked[names[0]], intent.Intent(names[0]), true
}

// blockContext derives the documented block-path fields: the first unmet
// capability still owed by the chain, the suggested next skill (the first
// chain skill whose Provides are not all satisfied), and a how-to-proceed
// hint built from those two facts.
func (e *Engine) blockContext(state model.SessionState, blockedIntent intent.Intent, reason string) (unmetCapability, nextSkill, howTo string) {
	if e.resolver == nil {
		return "", "", reason
	}
	satisfied := model.SatisfiedSet(state.CapabilitiesSatisfied)
	idx := e.resolver.NextSkillIndex(state.Chain, satisfied)
	if idx < len(state.Chain) {
		nextSkill = state.Chain[idx]
		if sk, ok := e.resolver.Skill(nextSkill); ok {
			for _, p := range sk.Provides {
				if _, ok := satisfied[p]; !ok {
					unmetCapability = p
					break
				}
			}
		}
	}
	switch {
	case unmetCapability != "" && nextSkill != "":
		howTo = fmt.Sprintf("%s: complete %q (skill %q) to unblock", reason, unmetCapability, nextSkill)
	case nextSkill != "":
		howTo = fmt.Sprintf("%s: complete skill %q to unblock", reason, nextSkill)
	default:
		howTo = reason
	}
	return unmetCapability, nextSkill, howTo
}

// guidance is the advisory-message content step 3 requires on an allow.
type guidance struct {
	CurrentSkill   string
	NextCapability string
	Progress       string
}

// reevaluate implements spec.md §4.H step 5: it re-checks the current
// skill's artifacts against the real workspace, grows CapabilitiesSatisfied
// monotonically, recomputes BlockedIntents via the same first-writer-wins
// rule capability.Resolver.Resolve uses, and advances CurrentSkillIndex to
// the first chain skill whose Provides are not yet all satisfied — all
// persisted through session.Store.Update so a concurrent hook invocation
// never interleaves with the mutation. It returns the guidance to surface on
// an allow even if persistence or re-checking could not run (e.g. no active
// chain), since the caller's own Decide has already computed the verdict.
func (e *Engine) reevaluate(ctx context.Context, state model.SessionState) guidance {
	if e.resolver == nil || e.checker == nil || len(state.Chain) == 0 {
		return guidance{}
	}

	var result guidance
	err := e.store.Update(ctx, state.SessionID, func(s *model.SessionState) error {
		satisfied := model.SatisfiedSet(s.CapabilitiesSatisfied)
		idx := e.resolver.NextSkillIndex(s.Chain, satisfied)
		if idx < len(s.Chain) {
			if sk, ok := e.resolver.Skill(s.Chain[idx]); ok {
				for _, artifact := range sk.Artifacts {
					if _, already := satisfied[artifact.Capability]; already {
						continue
					}
					ok, checkErr := e.checker.Check(ctx, evidence.FromArtifact(artifact))
					if checkErr != nil || !ok {
						continue
					}
					s.CapabilitiesSatisfied = append(s.CapabilitiesSatisfied, model.CapabilityEvidence{
						Capability:   artifact.Capability,
						SatisfiedAt:  time.Now().UTC(),
						SatisfiedBy:  sk.Name,
						EvidenceType: artifact.Type,
						EvidencePath: artifact.Path,
					})
					satisfied[artifact.Capability] = struct{}{}
				}
			}
		}

		s.BlockedIntents = e.resolver.BlockedIntents(s.Chain, satisfied)
		s.CurrentSkillIndex = e.resolver.NextSkillIndex(s.Chain, satisfied)

		result = guidanceFromState(*s, e.resolver)
		return nil
	})
	if err != nil {
		return guidanceFromState(state, e.resolver)
	}
	return result
}

func guidanceFromState(s model.SessionState, resolver *capability.Resolver) guidance {
	g := guidance{Progress: fmt.Sprintf("%d/%d capabilities satisfied", len(s.CapabilitiesSatisfied), len(s.CapabilitiesRequired))}
	if s.CurrentSkillIndex < len(s.Chain) {
		g.CurrentSkill = s.Chain[s.CurrentSkillIndex]
		if sk, ok := resolver.Skill(g.CurrentSkill); ok {
			satisfied := model.SatisfiedSet(s.CapabilitiesSatisfied)
			for _, p := range sk.Provides {
				if _, ok := satisfied[p]; !ok {
					g.NextCapability = p
					break
				}
			}
		}
	}
	return g
}

// StopInput is the Stop hook's request.
type StopInput struct{}

// StopDecision reports whether the session's completion requirements are
// satisfied and, if not, which predicates are still outstanding.
type StopDecision struct {
	Verdict     Verdict
	Outstanding []string
}

// StopEngine evaluates a session's completion requirements at stop-time.
type StopEngine struct {
	store    session.Store
	checker  *evidence.Checker
	profiles map[string]model.Profile
}

// NewStopEngine constructs a StopEngine. profiles indexes the declared
// profiles by name so their CompletionRequirements can be looked up by the
// active session's ProfileID.
func NewStopEngine(store session.Store, checker *evidence.Checker, profiles []model.Profile) *StopEngine {
	idx := make(map[string]model.Profile, len(profiles))
	for _, p := range profiles {
		idx[p.Name] = p
	}
	return &StopEngine{store: store, checker: checker, profiles: idx}
}

// Decide evaluates the current session's profile CompletionRequirements.
// With no active session, Stop is always allowed.
func (e *StopEngine) Decide(ctx context.Context, _ StopInput) (StopDecision, error) {
	state, err := e.store.Current(ctx)
	if err != nil {
		if err == model.ErrSessionNotFound {
			return StopDecision{Verdict: VerdictAllow}, nil
		}
		return StopDecision{}, err
	}

	// A session with no profile ID (e.g. one driven by the Workflow Enforcer
	// rather than a resolved capability chain) always allows Stop. This is a
	// deliberate preservation of a historically observed behavior, not a
	// deliberate design choice: see DESIGN.md's Open Question decisions.
	if state.ProfileID == "" {
		return StopDecision{Verdict: VerdictAllow}, nil
	}

	profile, ok := e.profiles[state.ProfileID]
	if !ok {
		return StopDecision{}, fmt.Errorf("%w: %s", model.ErrProfileNotFound, state.ProfileID)
	}

	var outstanding []string
	for _, req := range profile.CompletionRequirements {
		ok, err := e.checker.Check(ctx, evidence.FromCompletionRequirement(req))
		if err != nil {
			return StopDecision{}, err
		}
		if !ok {
			outstanding = append(outstanding, string(req.Type)+":"+req.Path+req.Command)
		}
	}

	if len(outstanding) == 0 {
		return StopDecision{Verdict: VerdictAllow}, nil
	}
	switch state.Strictness {
	case model.StrictnessStrict:
		return StopDecision{Verdict: VerdictBlock, Outstanding: outstanding}, nil
	case model.StrictnessAdvisory:
		return StopDecision{Verdict: VerdictWarn, Outstanding: outstanding}, nil
	default:
		return StopDecision{Verdict: VerdictAllow}, nil
	}
}
