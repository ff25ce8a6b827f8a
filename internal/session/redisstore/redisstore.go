// Package redisstore implements session.Store on Redis for multi-node
// deployments where session state must be visible across gateway nodes,
// adapting the corpus's Redis-backed mapping pattern (registry.ResultStreamManager)
// from ephemeral tool-result routing to durable session persistence.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/skillgate/skillgate/internal/model"
)

// Store is a session.Store backed by Redis. Updates use WATCH/MULTI so two
// racing writers (e.g. a hook and a concurrent CLI command) never clobber
// each other's Save silently.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// New returns a Store using rdb, namespacing keys under prefix (default
// "skillgate:session:" when empty).
func New(rdb *redis.Client, prefix string) (*Store, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	if prefix == "" {
		prefix = "skillgate:session:"
	}
	return &Store{rdb: rdb, prefix: prefix}, nil
}

func (s *Store) sessionKey(id string) string { return s.prefix + id }
func (s *Store) currentKey() string          { return s.prefix + "current" }

// Save implements session.Store.
func (s *Store) Save(ctx context.Context, state model.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", model.ErrStateCorruption, err)
	}
	txf := func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.sessionKey(state.SessionID), data, 0)
			pipe.Set(ctx, s.currentKey(), state.SessionID, 0)
			return nil
		})
		return err
	}
	if err := s.rdb.Watch(ctx, txf, s.sessionKey(state.SessionID), s.currentKey()); err != nil {
		return fmt.Errorf("%w: save session: %v", model.ErrStateCorruption, err)
	}
	return nil
}

// Update implements session.Store via WATCH/MULTI: the session key is
// watched so a concurrent writer aborts and retries this transaction (up to
// three attempts in all) rather than racing it, mirroring Save's
// optimistic-concurrency pattern.
func (s *Store) Update(ctx context.Context, sessionID string, mutate func(*model.SessionState) error) error {
	key := s.sessionKey(sessionID)
	var mutateErr error

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return model.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: get session: %v", model.ErrStateCorruption, err)
		}
		var state model.SessionState
		if err := json.Unmarshal(data, &state); err != nil {
			return fmt.Errorf("%w: decode session: %v", model.ErrStateCorruption, err)
		}
		if err := mutate(&state); err != nil {
			mutateErr = err
			return err
		}
		encoded, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("%w: encode session: %v", model.ErrStateCorruption, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = s.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if mutateErr != nil {
		return mutateErr
	}
	if errors.Is(err, model.ErrSessionNotFound) || errors.Is(err, model.ErrStateCorruption) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: update session: %v", model.ErrStateCorruption, err)
	}
	return nil
}

// Load implements session.Store.
func (s *Store) Load(ctx context.Context, sessionID string) (model.SessionState, error) {
	data, err := s.rdb.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.SessionState{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.SessionState{}, fmt.Errorf("%w: get session: %v", model.ErrStateCorruption, err)
	}
	var state model.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.SessionState{}, fmt.Errorf("%w: decode session: %v", model.ErrStateCorruption, err)
	}
	return state, nil
}

// Current implements session.Store.
func (s *Store) Current(ctx context.Context) (model.SessionState, error) {
	id, err := s.rdb.Get(ctx, s.currentKey()).Result()
	if errors.Is(err, redis.Nil) {
		return model.SessionState{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.SessionState{}, fmt.Errorf("%w: get current pointer: %v", model.ErrStateCorruption, err)
	}
	return s.Load(ctx, id)
}

// Clear implements session.Store.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.currentKey()).Err(); err != nil {
		return fmt.Errorf("%w: clear current pointer: %v", model.ErrStateCorruption, err)
	}
	return nil
}
