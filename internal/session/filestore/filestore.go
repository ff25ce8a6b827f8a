// Package filestore implements session.Store on the local filesystem: one
// JSON file per session under sessions/<id>.json, plus a current.json pointer
// naming the active session for the workspace. Writes are atomic
// (temp-file-then-rename) and serialized across processes with an advisory
// file lock, adapting the corpus's CLI session-manager persistence pattern
// (sanitizeFilename / tmpFile / os.Rename) to a multi-process workspace.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/skillgate/skillgate/internal/model"
)

// Store is a session.Store backed by a directory.
type Store struct {
	dir string
}

const defaultRetryDelay = 25 * time.Millisecond

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "sessions"), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create session dir: %v", model.ErrStateCorruption, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) lockPath() string         { return filepath.Join(s.dir, ".lock") }
func (s *Store) currentPath() string      { return filepath.Join(s.dir, "current.json") }
func (s *Store) sessionPath(id string) string {
	return filepath.Join(s.dir, "sessions", sanitizeID(id)+".json")
}

// Save implements session.Store. It writes sessions/<id>.json and updates
// current.json to point at it, both atomically, under an exclusive lock so
// concurrent hook invocations for the same workspace never interleave.
func (s *Store) Save(ctx context.Context, state model.SessionState) error {
	lock := flock.New(s.lockPath())
	if err := lockContext(ctx, lock); err != nil {
		return fmt.Errorf("%w: acquire session lock: %v", model.ErrStateCorruption, err)
	}
	defer lock.Unlock()

	if err := atomicWriteJSON(s.sessionPath(state.SessionID), state); err != nil {
		return err
	}
	return atomicWriteJSON(s.currentPath(), currentPointer{SessionID: state.SessionID})
}

// Load implements session.Store.
func (s *Store) Load(ctx context.Context, sessionID string) (model.SessionState, error) {
	return readSessionFile(s.sessionPath(sessionID))
}

// Current implements session.Store.
func (s *Store) Current(ctx context.Context) (model.SessionState, error) {
	data, err := os.ReadFile(s.currentPath())
	if os.IsNotExist(err) {
		return model.SessionState{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.SessionState{}, fmt.Errorf("%w: read current pointer: %v", model.ErrStateCorruption, err)
	}
	var ptr currentPointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return model.SessionState{}, fmt.Errorf("%w: decode current pointer: %v", model.ErrStateCorruption, err)
	}
	return s.Load(context.Background(), ptr.SessionID)
}

// Update implements session.Store: a read-modify-write under the same
// advisory lock Save uses, so a concurrent hook invocation for the same
// workspace can never interleave with the mutation.
func (s *Store) Update(ctx context.Context, sessionID string, mutate func(*model.SessionState) error) error {
	lock := flock.New(s.lockPath())
	if err := lockContext(ctx, lock); err != nil {
		return fmt.Errorf("%w: acquire session lock: %v", model.ErrStateCorruption, err)
	}
	defer lock.Unlock()

	state, err := readSessionFile(s.sessionPath(sessionID))
	if err != nil {
		return err
	}
	if err := mutate(&state); err != nil {
		return err
	}
	return atomicWriteJSON(s.sessionPath(sessionID), state)
}

// Clear implements session.Store. Session history files are left in place;
// only the current-session pointer is removed.
func (s *Store) Clear(ctx context.Context) error {
	lock := flock.New(s.lockPath())
	if err := lockContext(ctx, lock); err != nil {
		return fmt.Errorf("%w: acquire session lock: %v", model.ErrStateCorruption, err)
	}
	defer lock.Unlock()

	err := os.Remove(s.currentPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: clear current pointer: %v", model.ErrStateCorruption, err)
	}
	return nil
}

type currentPointer struct {
	SessionID string `json:"session_id"`
}

func readSessionFile(path string) (model.SessionState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model.SessionState{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.SessionState{}, fmt.Errorf("%w: read session: %v", model.ErrStateCorruption, err)
	}
	var state model.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.SessionState{}, fmt.Errorf("%w: decode session: %v", model.ErrStateCorruption, err)
	}
	return state, nil
}

// atomicWriteJSON mirrors the corpus's write-temp-then-rename session
// persistence: the rename is atomic on the same filesystem, so readers never
// observe a partially written file.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", model.ErrStateCorruption, err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", model.ErrStateCorruption, err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write temp file: %v", model.ErrStateCorruption, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync temp file: %v", model.ErrStateCorruption, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", model.ErrStateCorruption, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename into place: %v", model.ErrStateCorruption, err)
	}
	cleanup = false
	return nil
}

func lockContext(ctx context.Context, lock *flock.Flock) error {
	locked, err := lock.TryLockContext(ctx, defaultRetryDelay)
	if err != nil {
		return err
	}
	if !locked {
		return fmt.Errorf("timed out acquiring lock")
	}
	return nil
}

func sanitizeID(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
