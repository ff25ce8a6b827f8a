package evidence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillgate/skillgate/internal/model"
)

func TestCheckFileExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.txt"), []byte("ok"), 0o644))
	c := New(dir, 0)

	ok, err := c.Check(context.Background(), Predicate{Type: model.EvidenceFileExists, Path: "out.txt"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Check(context.Background(), Predicate{Type: model.EvidenceFileExists, Path: "missing.txt"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckFileExistsGlobPattern(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "nested", "foo.test.ts"), []byte(""), 0o644))
	c := New(dir, 0)

	ok, err := c.Check(context.Background(), Predicate{Type: model.EvidenceFileExists, Pattern: "**/*.test.ts"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Check(context.Background(), Predicate{Type: model.EvidenceFileExists, Pattern: "**/*.spec.ts"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckMarkerFound(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "log.txt"), []byte("PASS: all tests green\n"), 0o644))
	c := New(dir, 0)

	ok, err := c.Check(context.Background(), Predicate{Type: model.EvidenceMarkerFound, Path: "log.txt", Pattern: `^PASS:`})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Check(context.Background(), Predicate{Type: model.EvidenceMarkerFound, Path: "log.txt", Pattern: `^FAIL:`})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckCommandSuccess(t *testing.T) {
	c := New(t.TempDir(), 1)

	ok, err := c.Check(context.Background(), Predicate{Type: model.EvidenceCommandSuccess, Command: "true", ExitCode: 0})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Check(context.Background(), Predicate{Type: model.EvidenceCommandSuccess, Command: "false", ExitCode: 0})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Check(context.Background(), Predicate{Type: model.EvidenceCommandSuccess, Command: "exit 7", ExitCode: 7})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckCommandTimeout(t *testing.T) {
	c := New(t.TempDir(), 1)
	_, err := c.Check(context.Background(), Predicate{
		Type: model.EvidenceCommandSuccess, Command: "sleep 2", TimeoutSec: 1,
	})
	assert.ErrorIs(t, err, model.ErrEvidenceError)
}

func TestCheckManualNeverAutoSatisfied(t *testing.T) {
	c := New(t.TempDir(), 1)
	ok, err := c.Check(context.Background(), Predicate{Type: model.EvidenceManual})
	require.NoError(t, err)
	assert.False(t, ok)
}
