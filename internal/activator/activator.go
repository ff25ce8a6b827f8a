// Package activator implements the Chain Activator (spec.md §4.G): given a
// router decision and a resolved capability chain, it mints a session,
// persists it, and guards repeated activation requests with an idempotency
// cache keyed by request ID.
package activator

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"

	"github.com/skillgate/skillgate/internal/capability"
	"github.com/skillgate/skillgate/internal/model"
	"github.com/skillgate/skillgate/internal/session"
)

// Options configures an Activator.
type Options struct {
	Store            session.Store
	Resolver         *capability.Resolver
	Profiles         []model.Profile
	IdempotencyCache int // bounded request-id cache size; default 512
}

// Activator mints and persists sessions for resolved capability chains.
type Activator struct {
	store    session.Store
	resolver *capability.Resolver
	profiles map[string]model.Profile

	mu    sync.Mutex
	seen  *lru.Cache[string, model.SessionState]
	entropy *ulid.MonotonicEntropy
}

// New constructs an Activator.
func New(opts Options) (*Activator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: session store is required", model.ErrConfigError)
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("%w: capability resolver is required", model.ErrConfigError)
	}
	cap := opts.IdempotencyCache
	if cap <= 0 {
		cap = 512
	}
	seen, err := lru.New[string, model.SessionState](cap)
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency cache: %v", model.ErrConfigError, err)
	}
	profiles := make(map[string]model.Profile, len(opts.Profiles))
	for _, p := range opts.Profiles {
		profiles[p.Name] = p
	}
	return &Activator{
		store:    opts.Store,
		resolver: opts.Resolver,
		profiles: profiles,
		seen:     seen,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Activate resolves profileName's capability chain, mints a new session, and
// persists it. A repeated call with the same requestID returns the
// previously minted session without re-resolving or re-persisting —
// activation is idempotent per request ID.
func (a *Activator) Activate(ctx context.Context, requestID, profileName string) (model.SessionState, error) {
	a.mu.Lock()
	if cached, ok := a.seen.Get(requestID); ok {
		a.mu.Unlock()
		return cached, nil
	}
	a.mu.Unlock()

	profile, ok := a.profiles[profileName]
	if !ok {
		return model.SessionState{}, fmt.Errorf("%w: %s", model.ErrProfileNotFound, profileName)
	}

	result, err := a.resolver.Resolve(profile)
	if err != nil {
		return model.SessionState{}, err
	}

	state := model.SessionState{
		SessionID:            a.newSessionID(),
		ProfileID:            profile.Name,
		ActivatedAt:          time.Now().UTC(),
		Chain:                result.Chain,
		CapabilitiesRequired: profile.CapabilitiesRequired,
		Strictness:           profile.Strictness,
		BlockedIntents:       result.BlockedIntents,
	}
	if state.BlockedIntents == nil {
		state.BlockedIntents = make(map[string]string)
	}

	if err := a.store.Save(ctx, state); err != nil {
		return model.SessionState{}, err
	}

	a.mu.Lock()
	a.seen.Add(requestID, state)
	a.mu.Unlock()

	return state, nil
}

// ActivationOutcome is the result of ActivateFromDecision: either the session
// was activated (Activated true, State populated) or it was not, with Reason
// explaining why (e.g. "chat mode").
type ActivationOutcome struct {
	Activated bool
	Reason    string
	State     model.SessionState
}

// ActivateFromDecision determines which profile a router decision activates
// and activates it, following the documented precedence: an explicit
// decision.SelectedProfile wins; otherwise the top candidate's name is tried
// as a profile name (never as a skill name — profile and skill namespaces
// are kept distinct, see DESIGN.md's Open Question decision); otherwise the
// query is matched against each profile's Match patterns, highest Priority
// wins. A chat-mode decision never activates anything.
func (a *Activator) ActivateFromDecision(ctx context.Context, decision model.RouteDecision) (ActivationOutcome, error) {
	if decision.Mode == model.ModeChat {
		return ActivationOutcome{Activated: false, Reason: "chat mode"}, nil
	}

	profile, ok := a.resolveProfile(decision)
	if !ok {
		return ActivationOutcome{}, fmt.Errorf("%w: no profile matched route decision", model.ErrProfileNotFound)
	}

	requestID := decision.RequestID
	if requestID == "" {
		requestID = decision.SessionID
	}
	state, err := a.Activate(ctx, requestID, profile.Name)
	if err != nil {
		return ActivationOutcome{}, err
	}
	return ActivationOutcome{Activated: true, State: state}, nil
}

// resolveProfile implements the three-level precedence documented on
// ActivateFromDecision.
func (a *Activator) resolveProfile(decision model.RouteDecision) (model.Profile, bool) {
	if decision.SelectedProfile != "" {
		p, ok := a.profiles[decision.SelectedProfile]
		return p, ok
	}

	if len(decision.Candidates) > 0 {
		if p, ok := a.profiles[decision.Candidates[0].SkillName]; ok {
			return p, true
		}
	}

	var best model.Profile
	found := false
	query := strings.ToLower(decision.Query)
	for _, p := range a.profiles {
		for _, pattern := range p.Match {
			if pattern == "" {
				continue
			}
			if strings.Contains(query, strings.ToLower(pattern)) {
				if !found || p.Priority > best.Priority {
					best, found = p, true
				}
				break
			}
		}
	}
	return best, found
}

func (a *Activator) newSessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ms := ulid.Timestamp(time.Now())
	id, err := ulid.New(ms, a.entropy)
	if err != nil {
		// Monotonic entropy only errs on overflow within the same millisecond
		// after 2^80 IDs; fall back to a fresh random source rather than panic.
		n, _ := rand.Int(rand.Reader, big.NewInt(1<<62))
		return fmt.Sprintf("%d-%d", ms, n)
	}
	return id.String()
}
