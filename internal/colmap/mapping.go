// Package colmap aligns the header row of an external spreadsheet with the
// record field names and renders records as rows under that header.
package colmap

import (
	"context"
	"strings"

	"github.com/hpungsan/meishi/internal/errors"
)

// Entry maps one external header to at most one internal field.
//
//	Decided=false                 not yet decided
//	Decided=true, Internal=nil    explicitly not mapped
//	Decided=true, Internal!=nil   mapped
type Entry struct {
	External string  `json:"external"`
	Internal *string `json:"internal"`
	Decided  bool    `json:"decided"`
}

// Mapped reports whether the entry maps to an internal field.
func (e Entry) Mapped() bool {
	return e.Decided && e.Internal != nil && *e.Internal != ""
}

// Mapping is an ordered, user-editable column mapping.
// Entries follow the external header order, duplicates included.
type Mapping struct {
	Entries []Entry `json:"entries"`
}

// New returns a mapping with every external header undecided.
func New(external []string) *Mapping {
	m := &Mapping{Entries: make([]Entry, len(external))}
	for i, h := range external {
		m.Entries[i] = Entry{External: strings.TrimSpace(h)}
	}
	return m
}

// Headers returns the external headers in column order.
func (m *Mapping) Headers() []string {
	out := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		out[i] = e.External
	}
	return out
}

// Set maps external to internal. An empty internal clears the entry.
func (m *Mapping) Set(external, internal string) error {
	internal = strings.TrimSpace(internal)
	if internal == "" {
		return m.Clear(external)
	}
	return m.update(external, func(e *Entry) {
		v := internal
		e.Internal = &v
		e.Decided = true
	})
}

// Clear marks external as explicitly not mapped.
func (m *Mapping) Clear(external string) error {
	return m.update(external, func(e *Entry) {
		e.Internal = nil
		e.Decided = true
	})
}

// Lookup returns the internal field mapped to external.
func (m *Mapping) Lookup(external string) (string, bool) {
	external = strings.TrimSpace(external)
	for _, e := range m.Entries {
		if e.External == external {
			if e.Mapped() {
				return *e.Internal, true
			}
			return "", false
		}
	}
	return "", false
}

// Undecided returns the external headers that have no decision yet.
func (m *Mapping) Undecided() []string {
	var out []string
	for _, e := range m.Entries {
		if !e.Decided {
			out = append(out, e.External)
		}
	}
	return out
}

// Merge applies a proposal to undecided entries only. Proposed names not in
// internal, and empty proposals, become explicit "not mapped" decisions.
// Headers the proposal does not mention stay undecided.
func (m *Mapping) Merge(proposal map[string]string, internal []string) {
	known := make(map[string]bool, len(internal))
	for _, name := range internal {
		known[name] = true
	}

	for i := range m.Entries {
		e := &m.Entries[i]
		if e.Decided {
			continue
		}
		name, ok := proposal[e.External]
		if !ok {
			continue
		}
		e.Decided = true
		name = strings.TrimSpace(name)
		if name == "" || !known[name] {
			e.Internal = nil
			continue
		}
		v := name
		e.Internal = &v
	}
}

// Validate rejects mapped entries naming fields outside internal.
func (m *Mapping) Validate(internal []string) error {
	known := make(map[string]bool, len(internal))
	for _, name := range internal {
		known[name] = true
	}
	for _, e := range m.Entries {
		if e.Mapped() && !known[*e.Internal] {
			return errors.NewInvalidRequest("unknown field " + *e.Internal + " for column " + e.External)
		}
	}
	return nil
}

func (m *Mapping) update(external string, fn func(*Entry)) error {
	external = strings.TrimSpace(external)
	found := false
	for i := range m.Entries {
		if m.Entries[i].External == external {
			fn(&m.Entries[i])
			found = true
		}
	}
	if !found {
		return errors.NewInvalidRequest("unknown column: " + external)
	}
	return nil
}

// Proposer suggests a mapping from external headers to internal field names.
type Proposer interface {
	ProposeMapping(ctx context.Context, external, internal []string) (map[string]string, error)
}

// Propose asks p for a best-guess mapping and merges it into a fresh mapping.
// The result stays editable through Set and Clear.
func Propose(ctx context.Context, p Proposer, external, internal []string) (*Mapping, error) {
	m := New(external)
	proposal, err := p.ProposeMapping(ctx, m.Headers(), internal)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewExternalServiceFailure("column mapping", err)
	}
	m.Merge(proposal, internal)
	return m, nil
}
