// Package capability implements the Capability Resolver (spec.md §4.C): it
// turns a profile's required capabilities into an ordered, conflict-free skill
// chain given the declared skill catalog.
package capability

import (
	"fmt"
	"sort"

	"github.com/skillgate/skillgate/internal/model"
)

// Result is the output of Resolve.
type Result struct {
	Chain          []string
	BlockedIntents map[string]string
	Explanations   []string
	Warnings       []string
}

// Resolver builds skill chains from a fixed skill catalog.
type Resolver struct {
	skills map[string]model.Skill
}

// New indexes skills by name. Duplicate names keep the last definition.
func New(skills []model.Skill) *Resolver {
	idx := make(map[string]model.Skill, len(skills))
	for _, s := range skills {
		idx[s.Name] = s
	}
	return &Resolver{skills: idx}
}

// Resolve builds the ordered skill chain satisfying profile's required
// capabilities. An unreachable capability is a ResolutionError in strict
// mode and degrades to a warning in advisory/permissive modes. A conflict
// between two selected skills always fails resolution with a
// *model.ConflictError (wrapped as a ResolutionError in strict mode).
func (r *Resolver) Resolve(profile model.Profile) (Result, error) {
	res := Result{BlockedIntents: make(map[string]string)}

	providers := r.providersFor(profile.CapabilitiesRequired)
	for _, cap := range profile.CapabilitiesRequired {
		if len(providers[cap]) == 0 {
			msg := fmt.Sprintf("capability %q has no providing skill", cap)
			if profile.Strictness == model.StrictnessStrict {
				return Result{}, fmt.Errorf("%w: %s", model.ErrResolutionError, msg)
			}
			res.Warnings = append(res.Warnings, msg)
		}
	}

	selected := make(map[string]model.Skill)
	satisfied := make(map[string]struct{})
	for _, cap := range profile.CapabilitiesRequired {
		cands := providers[cap]
		if len(cands) == 0 {
			continue
		}
		pick := r.chooseProvider(cands, satisfied)
		selected[pick.Name] = pick
		for _, p := range pick.Provides {
			satisfied[p] = struct{}{}
		}
	}

	if err := r.checkConflicts(selected, profile.Strictness); err != nil {
		return Result{}, err
	}

	chain, err := r.order(selected, profile.Strictness)
	if err != nil {
		return Result{}, err
	}
	res.Chain = chain
	// At activation no capability has evidence yet, so every deny_until gate
	// of the chain is in force.
	res.BlockedIntents = r.BlockedIntents(chain, map[string]struct{}{})

	for name, sk := range selected {
		res.Explanations = append(res.Explanations,
			fmt.Sprintf("%s selected: provides %v", name, sk.Provides))
	}
	sort.Strings(res.Explanations)

	r.warnUnusedProvides(selected, profile.CapabilitiesRequired, &res)

	return res, nil
}

// BlockedIntents recomputes the blocked-intent map for an ordered skill chain
// given the capabilities currently satisfied, applying the same
// first-writer-wins rule Resolve uses: skills earlier in the chain take
// precedence over later ones for the same intent. Unknown skill names in
// chain are skipped rather than erroring, since a hook may be re-evaluating
// against a chain whose catalog has since lost a skill.
func (r *Resolver) BlockedIntents(chain []string, satisfied map[string]struct{}) map[string]string {
	out := make(map[string]string)
	for _, name := range chain {
		sk, ok := r.skills[name]
		if !ok {
			continue
		}
		for in, deny := range sk.ToolPolicy.DenyUntil {
			if _, ok := satisfied[deny.Until]; ok {
				continue
			}
			if _, exists := out[in]; !exists {
				out[in] = deny.Reason
			}
		}
	}
	return out
}

// NextSkillIndex returns the index of the first skill in chain whose Provides
// are not fully contained in satisfied, or len(chain) once every skill's
// capabilities are satisfied.
func (r *Resolver) NextSkillIndex(chain []string, satisfied map[string]struct{}) int {
	for i, name := range chain {
		sk, ok := r.skills[name]
		if !ok {
			continue
		}
		complete := true
		for _, p := range sk.Provides {
			if _, ok := satisfied[p]; !ok {
				complete = false
				break
			}
		}
		if !complete {
			return i
		}
	}
	return len(chain)
}

// Skill looks up a skill by name in the catalog.
func (r *Resolver) Skill(name string) (model.Skill, bool) {
	sk, ok := r.skills[name]
	return sk, ok
}

// providersFor maps each required capability to the skills providing it.
func (r *Resolver) providersFor(required []string) map[string][]model.Skill {
	out := make(map[string][]model.Skill, len(required))
	for _, cap := range required {
		for _, sk := range r.skills {
			if model.HasCapability(sk.Provides, cap) {
				out[cap] = append(out[cap], sk)
			}
		}
		sort.Slice(out[cap], func(i, j int) bool { return out[cap][i].Name < out[cap][j].Name })
	}
	return out
}

// chooseProvider applies the deterministic tie-break order: a skill whose
// Requires are already satisfied wins; then lower Risk; then lower Cost; then
// lexicographic name.
func (r *Resolver) chooseProvider(cands []model.Skill, satisfied map[string]struct{}) model.Skill {
	best := cands[0]
	for _, c := range cands[1:] {
		if less(c, best, satisfied) {
			best = c
		}
	}
	return best
}

func less(a, b model.Skill, satisfied map[string]struct{}) bool {
	aReady, bReady := requiresSatisfied(a, satisfied), requiresSatisfied(b, satisfied)
	if aReady != bReady {
		return aReady
	}
	if a.Risk.Rank() != b.Risk.Rank() {
		return a.Risk.Rank() < b.Risk.Rank()
	}
	if a.Cost.Rank() != b.Cost.Rank() {
		return a.Cost.Rank() < b.Cost.Rank()
	}
	return a.Name < b.Name
}

func requiresSatisfied(s model.Skill, satisfied map[string]struct{}) bool {
	for _, req := range s.Requires {
		if _, ok := satisfied[req]; !ok {
			return false
		}
	}
	return true
}

// checkConflicts returns a *model.ConflictError (wrapped as ResolutionError in
// strict mode) whenever a selected skill lists another selected skill in its
// Conflicts.
func (r *Resolver) checkConflicts(selected map[string]model.Skill, strictness model.Strictness) error {
	names := make([]string, 0, len(selected))
	for n := range selected {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		sk := selected[name]
		for _, conflict := range sk.Conflicts {
			if _, ok := selected[conflict]; ok {
				cerr := &model.ConflictError{Skill: name, Conflicts: conflict}
				if strictness == model.StrictnessStrict {
					return fmt.Errorf("%w: %w", model.ErrResolutionError, cerr)
				}
				return cerr
			}
		}
	}
	return nil
}

// order produces a deterministic topological ordering of selected skills by
// their Requires edges, breaking ties lexicographically. A cycle is a
// ResolutionError regardless of strictness — a cyclic chain can never activate.
func (r *Resolver) order(selected map[string]model.Skill, strictness model.Strictness) ([]string, error) {
	names := make([]string, 0, len(selected))
	for n := range selected {
		names = append(names, n)
	}
	sort.Strings(names)

	inDegree := make(map[string]int, len(names))
	dependents := make(map[string][]string)
	for _, n := range names {
		inDegree[n] = 0
	}
	for _, n := range names {
		sk := selected[n]
		for _, req := range sk.Requires {
			for _, other := range names {
				if model.HasCapability(selected[other].Provides, req) {
					inDegree[n]++
					dependents[other] = append(dependents[other], n)
				}
			}
		}
	}

	var queue []string
	for _, n := range names {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Strings(queue)

	var ordered []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		ordered = append(ordered, n)

		var next []string
		for _, d := range dependents[n] {
			inDegree[d]--
			if inDegree[d] == 0 {
				next = append(next, d)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
		sort.Strings(queue)
	}

	if len(ordered) != len(names) {
		return nil, fmt.Errorf("%w: cyclic skill dependency among %v", model.ErrResolutionError, names)
	}
	return ordered, nil
}

func (r *Resolver) warnUnusedProvides(selected map[string]model.Skill, required []string, res *Result) {
	requiredSet := make(map[string]struct{}, len(required))
	for _, c := range required {
		requiredSet[c] = struct{}{}
	}
	names := make([]string, 0, len(selected))
	for n := range selected {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		for _, p := range selected[n].Provides {
			if _, ok := requiredSet[p]; !ok {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("%s provides %q which no profile capability requires", n, p))
			}
		}
	}
}
