package state

import (
	"context"
	"strings"

	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/kvstore"
	"github.com/hpungsan/meishi/internal/record"
)

// Policies returns a copy of every policy in insertion order.
func (s *State) Policies() []record.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePolicies(s.policies)
}

// Policy returns a copy of the policy with id.
func (s *State) Policy(id string) (record.Policy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.policyIndex(id); i >= 0 {
		return s.policies[i].Clone(), true
	}
	return record.Policy{}, false
}

func (s *State) policyIndex(id string) int {
	for i := range s.policies {
		if s.policies[i].ID == id {
			return i
		}
	}
	return -1
}

// fillPolicy assigns a ULID and field IDs.
func (s *State) fillPolicy(p *record.Policy) {
	now := s.now()
	if p.ID == "" {
		p.ID = record.NewULID(now)
	}
	if p.Fields == nil {
		p.Fields = []record.PolicyField{}
	}
	for i := range p.Fields {
		if p.Fields[i].ID == "" {
			p.Fields[i].ID = record.NewULID(now)
		}
	}
}

// defaultTitle names a manually saved policy whose title is blank.
// Imported policies keep their decoded title so re-importing matches them.
func (s *State) defaultTitle(p *record.Policy) {
	if strings.TrimSpace(p.Title) == "" {
		p.Title = "Untitled " + s.now().Format("2006-01-02")
	}
}

// AddPolicy stores a new policy. A blank title becomes "Untitled <date>".
func (s *State) AddPolicy(ctx context.Context, p record.Policy) (record.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = p.Clone()
	s.fillPolicy(&p)
	s.defaultTitle(&p)
	if s.policyIndex(p.ID) >= 0 {
		return record.Policy{}, errors.NewInvalidRequest("policy " + p.ID + " already exists")
	}
	p.CreatedAt = s.now().Unix()
	p.UpdatedAt = p.CreatedAt

	s.policies = append(clonePolicies(s.policies), p)
	return p.Clone(), s.persist(ctx, kvstore.KeyPolicies, s.policies)
}

// UpdatePolicy replaces the policy with the same ID. CreatedAt is kept.
func (s *State) UpdatePolicy(ctx context.Context, p record.Policy) (record.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.policyIndex(p.ID)
	if i < 0 {
		return record.Policy{}, errors.NewNotFound("policy", p.ID)
	}

	p = p.Clone()
	s.fillPolicy(&p)
	s.defaultTitle(&p)
	p.CreatedAt = s.policies[i].CreatedAt
	p.UpdatedAt = s.now().Unix()

	next := clonePolicies(s.policies)
	next[i] = p
	s.policies = next
	return p.Clone(), s.persist(ctx, kvstore.KeyPolicies, s.policies)
}

// DeletePolicy removes a policy.
func (s *State) DeletePolicy(ctx context.Context, id string) (record.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.policyIndex(id)
	if i < 0 {
		return record.Policy{}, errors.NewNotFound("policy", id)
	}
	removed := s.policies[i]

	next := make([]record.Policy, 0, len(s.policies)-1)
	next = append(next, s.policies[:i]...)
	s.policies = append(next, s.policies[i+1:]...)
	return removed, s.persist(ctx, kvstore.KeyPolicies, s.policies)
}

// AppendPolicies is the policy counterpart of AppendContacts.
// Appended policies without field IDs get fresh ones; titles are stored as given.
func (s *State) AppendPolicies(ctx context.Context, plan func(existing []record.Policy) []record.Policy) ([]record.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accepted := plan(s.policies)
	if len(accepted) == 0 {
		return nil, nil
	}

	now := s.now().Unix()
	next := make([]record.Policy, 0, len(s.policies)+len(accepted))
	next = append(next, s.policies...)
	for i := range accepted {
		p := accepted[i].Clone()
		s.fillPolicy(&p)
		if p.CreatedAt == 0 {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		next = append(next, p)
	}
	s.policies = next
	return clonePolicies(next[len(next)-len(accepted):]), s.persist(ctx, kvstore.KeyPolicies, s.policies)
}
