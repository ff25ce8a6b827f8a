// Package session defines the Chain Activator's session-persistence contract
// (spec.md §4.D): a per-workspace materialization of an activated skill chain,
// plus the backends that durably store it.
package session

import (
	"context"

	"github.com/skillgate/skillgate/internal/model"
)

// Store persists and retrieves SessionState by session ID, and tracks the
// single "current" session for a workspace so hooks can resolve it without a
// caller-supplied ID.
//
// Contract:
//   - Load returns model.ErrSessionNotFound when no session exists for id.
//   - Save is atomic with respect to concurrent Save/Load from other processes
//     sharing the same workspace.
//   - Update performs a read-modify-write under the same per-workspace lock
//     Save uses: mutate runs while the lock is held and observes the latest
//     persisted state, and the result is written back atomically. Returns
//     model.ErrSessionNotFound if sessionID names no session.
//   - Clear removes the current-session pointer without deleting history.
type Store interface {
	Save(ctx context.Context, state model.SessionState) error
	Load(ctx context.Context, sessionID string) (model.SessionState, error)
	Current(ctx context.Context) (model.SessionState, error)
	Update(ctx context.Context, sessionID string, mutate func(*model.SessionState) error) error
	Clear(ctx context.Context) error
}
