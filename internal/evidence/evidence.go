// Package evidence implements the Evidence Checker (spec.md §4.F): it
// evaluates a skill's or profile's completion predicates (file_exists,
// marker_found, command_success, manual) against the real workspace.
package evidence

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/skillgate/skillgate/internal/model"
)

// Predicate is the minimal shape shared by model.ArtifactPredicate and
// model.CompletionRequirement, letting Check operate on either.
type Predicate struct {
	Type       model.EvidenceType
	Pattern    string
	Path       string
	Command    string
	ExitCode   int
	TimeoutSec int
}

// FromArtifact converts an ArtifactPredicate to a Predicate.
func FromArtifact(a model.ArtifactPredicate) Predicate {
	return Predicate{Type: a.Type, Pattern: a.Pattern, Path: a.Path, Command: a.Command, ExitCode: a.ExitCode, TimeoutSec: a.TimeoutSec}
}

// FromCompletionRequirement converts a CompletionRequirement to a Predicate.
func FromCompletionRequirement(c model.CompletionRequirement) Predicate {
	return Predicate{Type: c.Type, Pattern: c.Pattern, Path: c.Path, Command: c.Command, ExitCode: c.ExitCode, TimeoutSec: c.TimeoutSec}
}

const defaultCommandTimeout = 30 * time.Second

// Checker evaluates predicates against workspaceRoot. command_success
// evaluations draw from a token bucket so a burst of stop-hook checks cannot
// fork-bomb the workspace.
type Checker struct {
	workspaceRoot string
	limiter       *rate.Limiter
}

// New returns a Checker rooted at workspaceRoot. maxConcurrentCommands sizes
// the token bucket (default 4): up to that many command_success subprocesses
// may start in a burst, refilled at that many per second. It limits how fast
// subprocesses start, not how many run at the same time.
func New(workspaceRoot string, maxConcurrentCommands int) *Checker {
	if maxConcurrentCommands <= 0 {
		maxConcurrentCommands = 4
	}
	return &Checker{
		workspaceRoot: workspaceRoot,
		limiter:       rate.NewLimiter(rate.Limit(maxConcurrentCommands), maxConcurrentCommands),
	}
}

// Check evaluates p and reports whether it is satisfied. A predicate
// evaluator failure (e.g. a command timeout) returns (false, ErrEvidenceError)
// rather than panicking: the caller treats it as "not yet satisfied".
func (c *Checker) Check(ctx context.Context, p Predicate) (bool, error) {
	switch p.Type {
	case model.EvidenceFileExists:
		return c.checkFileExists(p)
	case model.EvidenceMarkerFound:
		return c.checkMarkerFound(p)
	case model.EvidenceCommandSuccess:
		return c.checkCommandSuccess(ctx, p)
	case model.EvidenceManual:
		return false, nil // manual predicates are never auto-satisfied
	default:
		return false, fmt.Errorf("%w: unknown evidence type %q", model.ErrEvidenceError, p.Type)
	}
}

// checkFileExists is satisfied if at least one path under the workspace
// matches the supplied glob (p.Pattern). A literal p.Path is also accepted
// for predicates that name a single file directly rather than a pattern.
func (c *Checker) checkFileExists(p Predicate) (bool, error) {
	if p.Pattern != "" {
		return c.globMatches(p.Pattern)
	}
	if p.Path == "" {
		return false, fmt.Errorf("%w: file_exists predicate missing path or pattern", model.ErrEvidenceError)
	}
	info, err := os.Stat(c.resolve(p.Path))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %v", model.ErrEvidenceError, p.Path, err)
	}
	return !info.IsDir(), nil
}

// globMatches walks the workspace root and reports whether any regular file's
// slash-normalized relative path matches pattern. A "**/" prefix is handled
// by also matching the pattern's remainder against the file's base name,
// mirroring the pack's own pattern-filter idiom for recursive globs that
// path/filepath's Match does not support natively.
func (c *Checker) globMatches(pattern string) (bool, error) {
	root := c.workspaceRoot
	if root == "" {
		root = "."
	}
	found := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		normalized := filepath.ToSlash(rel)
		if globMatch(pattern, normalized) {
			found = true
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: glob %s: %v", model.ErrEvidenceError, pattern, err)
	}
	return found, nil
}

// globMatch reports whether normalizedPath matches pattern, a slash-separated
// glob that may use a "**/" prefix to mean "at any depth".
func globMatch(pattern, normalizedPath string) bool {
	if matched, err := filepath.Match(pattern, normalizedPath); err == nil && matched {
		return true
	}
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		if matched, err := filepath.Match(rest, filepath.Base(normalizedPath)); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(rest, normalizedPath); err == nil && matched {
			return true
		}
	}
	return false
}

func (c *Checker) checkMarkerFound(p Predicate) (bool, error) {
	if p.Path == "" || p.Pattern == "" {
		return false, fmt.Errorf("%w: marker_found predicate missing path or pattern", model.ErrEvidenceError)
	}
	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return false, fmt.Errorf("%w: invalid marker pattern: %v", model.ErrEvidenceError, err)
	}
	f, err := os.Open(c.resolve(p.Path))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: open %s: %v", model.ErrEvidenceError, p.Path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if re.MatchString(scanner.Text()) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("%w: scan %s: %v", model.ErrEvidenceError, p.Path, err)
	}
	return false, nil
}

func (c *Checker) checkCommandSuccess(ctx context.Context, p Predicate) (bool, error) {
	if p.Command == "" {
		return false, fmt.Errorf("%w: command_success predicate missing command", model.ErrEvidenceError)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("%w: rate limit wait: %v", model.ErrEvidenceError, err)
	}

	timeout := defaultCommandTimeout
	if p.TimeoutSec > 0 {
		timeout = time.Duration(p.TimeoutSec) * time.Second
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "sh", "-c", p.Command)
	cmd.Dir = c.workspaceRoot
	err := cmd.Run()

	if cmdCtx.Err() != nil {
		return false, fmt.Errorf("%w: command timed out after %s: %s", model.ErrEvidenceError, timeout, p.Command)
	}

	wantExit := p.ExitCode
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == wantExit, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: run command: %v", model.ErrEvidenceError, err)
	}
	return wantExit == 0, nil
}

func (c *Checker) resolve(path string) string {
	if c.workspaceRoot == "" {
		return path
	}
	if len(path) > 0 && path[0] == '/' {
		return path
	}
	return c.workspaceRoot + "/" + path
}
