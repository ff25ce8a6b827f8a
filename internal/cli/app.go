// Package cli wires the gate's components into the cobra command tree that
// implements the hook command surface (spec.md §6): pre-tool-use, stop,
// activate, status, clear, next, plus a stdin-driven router activation
// script, following the corpus's thin-cmd-package-plus-Execute() convention.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/skillgate/skillgate/internal/activator"
	"github.com/skillgate/skillgate/internal/capability"
	"github.com/skillgate/skillgate/internal/evidence"
	"github.com/skillgate/skillgate/internal/hook"
	"github.com/skillgate/skillgate/internal/session"
	"github.com/skillgate/skillgate/internal/session/filestore"
	"github.com/skillgate/skillgate/internal/telemetry"
	"github.com/skillgate/skillgate/pkg/skillgateconfig"
)

// app bundles the wired components every hook subcommand needs. It is
// constructed once per process invocation from the root command's
// persistent flags.
type app struct {
	workspaceRoot string

	corpus    skillgateconfig.Corpus
	store     session.Store
	resolver  *capability.Resolver
	checker   *evidence.Checker
	activator *activator.Activator
	hookEngine *hook.Engine
	stopEngine *hook.StopEngine
	logger    telemetry.Logger
}

func newApp(skillsPath, profilesPath, workspaceRoot string) (*app, error) {
	corpus, err := skillgateconfig.Load(skillsPath, profilesPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	sessionDir := filepath.Join(workspaceRoot, ".skillgate")
	store, err := filestore.New(sessionDir)
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}

	resolver := capability.New(corpus.Skills)
	checker := evidence.New(workspaceRoot, 0)
	logger := telemetry.NewNoopLogger()

	act, err := activator.New(activator.Options{
		Store:    store,
		Resolver: resolver,
		Profiles: corpus.Profiles,
	})
	if err != nil {
		return nil, fmt.Errorf("init activator: %w", err)
	}

	return &app{
		workspaceRoot: workspaceRoot,
		corpus:        corpus,
		store:         store,
		resolver:      resolver,
		checker:       checker,
		activator:     act,
		hookEngine:    hook.New(store, resolver, checker),
		stopEngine:    hook.NewStopEngine(store, checker, corpus.Profiles),
		logger:        logger,
	}, nil
}

// defaultWorkspace resolves the workspace root the hook is operating
// against: the current directory unless overridden.
func defaultWorkspace() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
