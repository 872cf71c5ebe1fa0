package state

import (
	"context"
	"strconv"

	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/kvstore"
	"github.com/hpungsan/meishi/internal/record"
)

// Contacts returns a copy of every contact in insertion order.
func (s *State) Contacts() []record.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneContacts(s.contacts)
}

// Contact returns a copy of the contact with id.
func (s *State) Contact(id int64) (record.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.contactIndex(id); i >= 0 {
		return s.contacts[i].Clone(), true
	}
	return record.Contact{}, false
}

func (s *State) contactIndex(id int64) int {
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			return i
		}
	}
	return -1
}

// AddContact stores a new contact. A zero ID is replaced with a fresh one.
func (s *State) AddContact(ctx context.Context, c record.Contact) (record.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c = c.Clone()
	if c.ID == 0 {
		// Generated IDs collide within one millisecond; redraw
		for c.ID = record.NewContactID(now); s.contactIndex(c.ID) >= 0; {
			c.ID = record.NewContactID(now)
		}
	} else if s.contactIndex(c.ID) >= 0 {
		return record.Contact{}, errors.NewInvalidRequest("contact " + strconv.FormatInt(c.ID, 10) + " already exists")
	}
	c.CreatedAt = now.Unix()
	c.UpdatedAt = c.CreatedAt

	next := append(cloneContacts(s.contacts), c)
	s.contacts = next
	return c.Clone(), s.persist(ctx, kvstore.KeyContacts, s.contacts)
}

// UpdateContact replaces the contact with the same ID. CreatedAt is kept.
func (s *State) UpdateContact(ctx context.Context, c record.Contact) (record.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.contactIndex(c.ID)
	if i < 0 {
		return record.Contact{}, errors.NewNotFound("contact", strconv.FormatInt(c.ID, 10))
	}

	c = c.Clone()
	c.CreatedAt = s.contacts[i].CreatedAt
	c.UpdatedAt = s.now().Unix()

	next := cloneContacts(s.contacts)
	next[i] = c
	s.contacts = next
	return c.Clone(), s.persist(ctx, kvstore.KeyContacts, s.contacts)
}

// DeleteContact removes a contact and drops it from the recent list.
func (s *State) DeleteContact(ctx context.Context, id int64) (record.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.contactIndex(id)
	if i < 0 {
		return record.Contact{}, errors.NewNotFound("contact", strconv.FormatInt(id, 10))
	}
	removed := s.contacts[i]

	next := make([]record.Contact, 0, len(s.contacts)-1)
	next = append(next, s.contacts[:i]...)
	next = append(next, s.contacts[i+1:]...)
	s.contacts = next
	err := s.persist(ctx, kvstore.KeyContacts, s.contacts)

	if j := indexOf(s.recent, id); j >= 0 {
		recent := make([]int64, 0, len(s.recent)-1)
		recent = append(recent, s.recent[:j]...)
		s.recent = append(recent, s.recent[j+1:]...)
		if rerr := s.persist(ctx, kvstore.KeyRecentIDs, s.recent); err == nil {
			err = rerr
		}
	}
	return removed, err
}

// AppendContacts runs plan against the current contacts and appends whatever
// it returns as one mutation with a single write. plan must not modify existing.
func (s *State) AppendContacts(ctx context.Context, plan func(existing []record.Contact) []record.Contact) ([]record.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accepted := plan(s.contacts)
	if len(accepted) == 0 {
		return nil, nil
	}

	now := s.now().Unix()
	next := make([]record.Contact, 0, len(s.contacts)+len(accepted))
	next = append(next, s.contacts...)
	for i := range accepted {
		c := accepted[i].Clone()
		if c.CreatedAt == 0 {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		next = append(next, c)
	}
	s.contacts = next
	return cloneContacts(next[len(next)-len(accepted):]), s.persist(ctx, kvstore.KeyContacts, s.contacts)
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
