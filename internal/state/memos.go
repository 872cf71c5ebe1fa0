package state

import (
	"context"
	"strings"

	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/kvstore"
	"github.com/hpungsan/meishi/internal/record"
)

// Memos returns every memo, newest first.
func (s *State) Memos() []record.Memo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]record.Memo(nil), s.memos...)
}

// AddMemo stores a memo at the front of the list.
func (s *State) AddMemo(ctx context.Context, text, summary string) (record.Memo, error) {
	if strings.TrimSpace(text) == "" {
		return record.Memo{}, errors.NewInvalidRequest("memo text is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	m := record.Memo{ID: record.NewULID(now), Text: text, Summary: summary, CreatedAt: now.Unix()}

	next := make([]record.Memo, 0, len(s.memos)+1)
	next = append(next, m)
	s.memos = append(next, s.memos...)
	return m, s.persist(ctx, kvstore.KeyMemos, s.memos)
}

// DeleteMemo removes a memo.
func (s *State) DeleteMemo(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.memos {
		if s.memos[i].ID == id {
			next := make([]record.Memo, 0, len(s.memos)-1)
			next = append(next, s.memos[:i]...)
			s.memos = append(next, s.memos[i+1:]...)
			return s.persist(ctx, kvstore.KeyMemos, s.memos)
		}
	}
	return errors.NewNotFound("memo", id)
}
