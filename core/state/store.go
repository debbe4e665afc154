package state

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"buildcost/core/types"
	apperrors "buildcost/internal/errors"
	"buildcost/internal/logging"
)

// DefaultPrefix namespaces every key this application writes
const DefaultPrefix = "buildcost:"

// Store is the namespaced state store. Durable and session data share the
// same key layout but live in separate backends.
//
// Failures are logged and reported as false; they never propagate as
// errors into the calculation pipeline.
type Store struct {
	prefix  string
	durable Backend
	session *MemoryBackend
	logger  *zap.Logger
}

// NewStore creates a store over a durable backend
func NewStore(durable Backend, prefix string, logger *zap.Logger) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if durable == nil {
		durable = NewMemoryBackend()
	}
	return &Store{
		prefix:  prefix,
		durable: durable,
		session: NewMemoryBackend(),
		logger:  logging.Component(logger, "state"),
	}
}

// NewMemoryStore creates a store whose durable side is also in memory
func NewMemoryStore(logger *zap.Logger) *Store {
	return NewStore(NewMemoryBackend(), DefaultPrefix, logger)
}

// Prefix returns the namespace prefix
func (s *Store) Prefix() string {
	return s.prefix
}

// Key returns the namespaced key for a calculator identity
func (s *Store) Key(key string) string {
	return s.prefix + key
}

// Save stores value under key in the durable backend
func (s *Store) Save(ctx context.Context, key string, value any) bool {
	return s.put(ctx, s.durable, "save", key, value)
}

// Load decodes the durable value for key into dst. It returns false when
// the key was never saved, was cleared, or could not be read.
func (s *Store) Load(ctx context.Context, key string, dst any) bool {
	return s.get(ctx, s.durable, "load", key, dst)
}

// Clear removes key from the durable backend
func (s *Store) Clear(ctx context.Context, key string) bool {
	return s.del(ctx, s.durable, "clear", key)
}

// ClearAll removes every namespaced durable key
func (s *Store) ClearAll(ctx context.Context) bool {
	if err := s.durable.DeletePrefix(ctx, s.prefix); err != nil {
		s.logger.Warn("state clear all failed", zap.Error(err))
		return false
	}
	return true
}

// Keys lists the un-prefixed durable keys
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.durable.Keys(ctx, s.prefix)
	if err != nil {
		return nil, apperrors.Storage("list keys", err)
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, s.prefix)
	}
	return keys, nil
}

// SaveSession stores value for the lifetime of the process only
func (s *Store) SaveSession(ctx context.Context, key string, value any) bool {
	return s.put(ctx, s.session, "save session", key, value)
}

// LoadSession decodes the session value for key into dst
func (s *Store) LoadSession(ctx context.Context, key string, dst any) bool {
	return s.get(ctx, s.session, "load session", key, dst)
}

// ClearSession removes key from the session backend
func (s *Store) ClearSession(ctx context.Context, key string) bool {
	return s.del(ctx, s.session, "clear session", key)
}

// SaveCalculator persists the state of one calculator identity
func (s *Store) SaveCalculator(ctx context.Context, st types.PersistedCalculatorState) bool {
	return s.Save(ctx, st.CalculatorID, st)
}

// LoadCalculator loads the state of one calculator identity
func (s *Store) LoadCalculator(ctx context.Context, calculatorID string) (types.PersistedCalculatorState, bool) {
	var st types.PersistedCalculatorState
	if !s.Load(ctx, calculatorID, &st) {
		return types.PersistedCalculatorState{}, false
	}
	if st.CalculatorID != calculatorID {
		s.logger.Warn("persisted state belongs to another calculator",
			zap.String("key", calculatorID), zap.String("owner", st.CalculatorID))
		return types.PersistedCalculatorState{}, false
	}
	return st, true
}

func (s *Store) put(ctx context.Context, b Backend, op, key string, value any) bool {
	if key == "" {
		s.logger.Warn("state "+op+" rejected empty key")
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("state "+op+" failed: value is not serializable", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := b.Put(ctx, s.Key(key), data); err != nil {
		s.logger.Warn("state "+op+" failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) get(ctx context.Context, b Backend, op, key string, dst any) bool {
	if key == "" {
		return false
	}
	data, found, err := b.Get(ctx, s.Key(key))
	if err != nil {
		s.logger.Warn("state "+op+" failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("state "+op+" failed: stored value is corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) del(ctx context.Context, b Backend, op, key string) bool {
	if key == "" {
		return false
	}
	if err := b.Delete(ctx, s.Key(key)); err != nil {
		s.logger.Warn("state "+op+" failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
