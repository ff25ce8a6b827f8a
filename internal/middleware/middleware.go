// Package middleware implements the Corrective Middleware (spec.md §4.J): a
// per-request state machine sitting between the router and the agent that
// augments the prompt with a call-the-skill directive, parses the agent's
// response for skill invocations, and retries with an escalating correction
// when a required skill was not invoked.
package middleware

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/skillgate/skillgate/internal/model"
)

// State is the middleware's per-request lifecycle state.
type State string

const (
	StateIdle             State = "idle"
	StateInitialized      State = "initialized"
	StateAwaitingResponse State = "awaiting_response"
	StateAccepted         State = "accepted"
	StateRejected         State = "rejected"
	StateExhausted        State = "exhausted"
)

const (
	immediateFloor    = 0.70
	suggestionFloor   = 0.50
	immediateFraction = 0.7
	suggestionFraction = 0.5
	defaultMaxRetries = 3
)

// Outcome is the result of processing one agent response.
type Outcome struct {
	State         State
	MissingTools  []string
	FoundTools    []string
	RetryPrompt   string
	Err           error
}

// Session tracks one request's corrective-middleware lifecycle: it is
// initialized from a routing decision, augments the outbound prompt, and
// processes the agent's response, retrying up to MaxRetries times.
type Session struct {
	state         State
	mode          model.Mode
	requiredTools []string
	foundTools    map[string]struct{}
	retryCount    int
	maxRetries    int
	originalPrompt string
}

// New initializes a Session from a routing decision and the original
// prompt. required_tools is derived from candidates scoring above the
// mode-appropriate floor.
func New(decision model.RouteDecision, prompt string, maxRetries int) *Session {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	s := &Session{
		state:          StateInitialized,
		mode:           decision.Mode,
		maxRetries:     maxRetries,
		originalPrompt: prompt,
		foundTools:     make(map[string]struct{}),
	}
	s.requiredTools = requiredTools(decision)
	return s
}

func requiredTools(decision model.RouteDecision) []string {
	if decision.Mode == model.ModeChat || len(decision.Candidates) == 0 {
		return nil
	}
	top := decision.Candidates[0].Score
	var floor float64
	switch decision.Mode {
	case model.ModeImmediate:
		floor = min64(immediateFloor, top*immediateFraction)
	case model.ModeSuggestion:
		floor = min64(suggestionFloor, top*suggestionFraction)
	default:
		return nil
	}
	var out []string
	for _, c := range decision.Candidates {
		if c.Score >= floor {
			out = append(out, c.SkillName)
		}
	}
	return out
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// AugmentPrompt returns the prompt to send to the agent for the current
// attempt, prefixed with a directive appropriate to the mode.
func (s *Session) AugmentPrompt() string {
	switch s.mode {
	case model.ModeImmediate:
		return fmt.Sprintf("[MUST_CALL: %s] You must invoke the listed skill(s) before responding.\n%s",
			skillList(s.requiredTools), s.originalPrompt)
	case model.ModeSuggestion:
		return fmt.Sprintf("[CONSIDER_CALLING: %s]\n%s", skillList(s.requiredTools), s.originalPrompt)
	default:
		return s.originalPrompt
	}
}

func skillList(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("Skill(%s)", n)
	}
	return strings.Join(parts, ", ")
}

var (
	skillCallQuoted   = regexp.MustCompile(`(?i)Skill\(\s*"([^"]+)"\s*\)`)
	skillCallBare     = regexp.MustCompile(`(?i)Skill\(\s*([A-Za-z0-9_\-./]+)\s*\)`)
)

type invokeSkillDirective struct {
	Action string `json:"action"`
	Skill  string `json:"skill"`
}

// extractInvocations parses response text for skill invocations, recognising
// both Skill("name")/Skill(name) text forms and a structured-JSON form (the
// whole response is one invoke_skill object, or an array of them).
func extractInvocations(response string) []string {
	trimmed := strings.TrimSpace(response)
	if names, ok := parseJSONInvocations(trimmed); ok {
		return names
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, m := range skillCallQuoted.FindAllStringSubmatch(response, -1) {
		add(m[1])
	}
	for _, m := range skillCallBare.FindAllStringSubmatch(response, -1) {
		add(m[1])
	}
	return out
}

func parseJSONInvocations(text string) ([]string, bool) {
	if text == "" {
		return nil, false
	}
	var single invokeSkillDirective
	if err := json.Unmarshal([]byte(text), &single); err == nil && single.Action == "invoke_skill" && single.Skill != "" {
		return []string{single.Skill}, true
	}
	var many []invokeSkillDirective
	if err := json.Unmarshal([]byte(text), &many); err == nil && len(many) > 0 {
		var names []string
		seen := make(map[string]struct{})
		for _, d := range many {
			if d.Action != "invoke_skill" || d.Skill == "" {
				return nil, false
			}
			if _, ok := seen[d.Skill]; ok {
				continue
			}
			seen[d.Skill] = struct{}{}
			names = append(names, d.Skill)
		}
		return names, true
	}
	return nil, false
}

// ProcessResponse evaluates the agent's response text against the session's
// required tools and advances the state machine. A chat-mode session or a
// suggestion-mode session always accepts; immediate mode accepts only if
// every required tool was invoked.
func (s *Session) ProcessResponse(response string) Outcome {
	s.state = StateAwaitingResponse
	found := extractInvocations(response)
	for _, f := range found {
		s.foundTools[f] = struct{}{}
	}

	switch s.mode {
	case model.ModeChat, model.ModeSuggestion:
		s.state = StateAccepted
		return Outcome{State: StateAccepted, FoundTools: found}
	}

	missing := s.missingTools()
	if len(missing) == 0 {
		s.state = StateAccepted
		return Outcome{State: StateAccepted, FoundTools: found}
	}

	s.state = StateRejected
	if s.retryCount >= s.maxRetries {
		s.state = StateExhausted
		return Outcome{
			State:        StateExhausted,
			MissingTools: missing,
			Err:          fmt.Errorf("%w: missing %s after %d attempts", model.ErrRetryExhausted, skillList(missing), s.retryCount+1),
		}
	}

	s.retryCount++
	reason := fmt.Sprintf("COMPLIANCE ERROR: You MUST call %s. Attempt %d/%d", skillList(missing), s.retryCount, s.maxRetries)
	return Outcome{
		State:        StateRejected,
		MissingTools: missing,
		RetryPrompt:  reason + "\n\n" + s.originalPrompt,
	}
}

func (s *Session) missingTools() []string {
	var missing []string
	for _, t := range s.requiredTools {
		if _, ok := s.foundTools[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// State reports the session's current lifecycle state.
func (s *Session) State() State { return s.state }
