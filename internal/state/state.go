// Package state owns the in-memory collections and persists them after every
// mutation.
//
// A persistence failure does not roll back the in-memory change: the mutation
// stays applied, the failure is logged, and the method returns a
// PERSISTENCE_FAILURE error so callers can warn the user.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/kvstore"
	"github.com/hpungsan/meishi/internal/record"
)

// MaxRecent caps the recently viewed contact list.
const MaxRecent = 20

// State is the application state controller.
type State struct {
	mu    sync.Mutex
	store kvstore.Store
	log   *slog.Logger
	now   func() time.Time

	contacts []record.Contact
	policies []record.Policy
	recent   []int64
	memos    []record.Memo
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) { s.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// Open loads every collection from store. Missing keys start empty.
func Open(ctx context.Context, store kvstore.Store, opts ...Option) (*State, error) {
	s := &State{store: store, log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := load(ctx, store, kvstore.KeyContacts, &s.contacts); err != nil {
		return nil, err
	}
	if err := load(ctx, store, kvstore.KeyPolicies, &s.policies); err != nil {
		return nil, err
	}
	if err := load(ctx, store, kvstore.KeyRecentIDs, &s.recent); err != nil {
		return nil, err
	}
	if err := load(ctx, store, kvstore.KeyMemos, &s.memos); err != nil {
		return nil, err
	}
	return s, nil
}

func load(ctx context.Context, store kvstore.Store, key string, dst any) error {
	data, ok, err := store.Get(ctx, key)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("load %s: %w", key, err))
	}
	if !ok || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.NewInternal(fmt.Errorf("decode %s: %w", key, err))
	}
	return nil
}

// persist writes one collection. Callers hold mu.
func (s *State) persist(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err == nil {
		err = s.store.Put(ctx, key, data)
	}
	if err != nil {
		s.log.Error("persist failed; in-memory state kept", "key", key, "error", err)
		return errors.NewPersistenceFailure(key, err)
	}
	s.log.Debug("persisted", "key", key, "bytes", len(data))
	return nil
}

// Store returns the backing store.
func (s *State) Store() kvstore.Store {
	return s.store
}

// Now returns the controller's clock reading.
func (s *State) Now() time.Time {
	return s.now()
}

// IsWarning reports whether err only signals a failed write after a mutation
// that was applied in memory.
func IsWarning(err error) bool {
	return errors.Is(err, errors.ErrPersistenceFailure)
}

func cloneContacts(in []record.Contact) []record.Contact {
	out := make([]record.Contact, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func clonePolicies(in []record.Policy) []record.Policy {
	out := make([]record.Policy, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// RecentIDs returns recently viewed contact IDs, newest first.
func (s *State) RecentIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.recent)
}

// TouchRecent moves id to the front of the recent list.
func (s *State) TouchRecent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]int64, 0, MaxRecent)
	next = append(next, id)
	for _, r := range s.recent {
		if r != id && len(next) < MaxRecent {
			next = append(next, r)
		}
	}
	s.recent = next
	return s.persist(ctx, kvstore.KeyRecentIDs, s.recent)
}
