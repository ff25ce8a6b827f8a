package filestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillgate/skillgate/internal/model"
)

func TestSaveLoadCurrentRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	state := model.SessionState{
		SessionID:            "01JABCDEF",
		ProfileID:            "ship-feature",
		ActivatedAt:          time.Now().UTC().Truncate(time.Second),
		Chain:                []string{"scaffold", "write-tests"},
		CapabilitiesRequired: []string{"scaffolding", "tests"},
	}
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, state.SessionID, loaded.SessionID)
	assert.Equal(t, state.Chain, loaded.Chain)

	current, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.SessionID, current.SessionID)
}

func TestLoadMissingSessionNotFound(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestCurrentMissingSessionNotFound(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = store.Current(context.Background())
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestUpdateMutatesPersistedState(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	state := model.SessionState{SessionID: "01JUPD", CurrentSkillIndex: 0, BlockedIntents: map[string]string{"write_impl": "x"}}
	require.NoError(t, store.Save(ctx, state))

	err = store.Update(ctx, state.SessionID, func(s *model.SessionState) error {
		s.CurrentSkillIndex = 1
		delete(s.BlockedIntents, "write_impl")
		return nil
	})
	require.NoError(t, err)

	loaded, err := store.Load(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.CurrentSkillIndex)
	assert.NotContains(t, loaded.BlockedIntents, "write_impl")
}

func TestUpdateMissingSessionNotFound(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	err = store.Update(context.Background(), "missing", func(*model.SessionState) error { return nil })
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestClearRemovesCurrentButKeepsHistory(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	state := model.SessionState{SessionID: "01JKEEP", ActivatedAt: time.Now().UTC()}
	require.NoError(t, store.Save(ctx, state))
	require.NoError(t, store.Clear(ctx))

	_, err = store.Current(ctx)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	loaded, err := store.Load(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, state.SessionID, loaded.SessionID)
}
