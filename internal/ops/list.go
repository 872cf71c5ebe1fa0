package ops

import (
	"strings"

	"github.com/hpungsan/meishi/internal/codec"
	"github.com/hpungsan/meishi/internal/record"
	"github.com/hpungsan/meishi/internal/state"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Kind   string // contacts (default) or policies
	Query  string // optional case-insensitive substring filter
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// ListOutput contains the result of the List operation.
// Exactly one of Contacts and Policies is set, according to Kind.
type ListOutput struct {
	Kind       codec.Kind       `json:"kind"`
	Contacts   []record.Contact `json:"contacts,omitempty"`
	Policies   []record.Policy  `json:"policies,omitempty"`
	Pagination Pagination       `json:"pagination"`
}

// List returns one page of a collection in insertion order.
func List(st *state.State, input ListInput) (*ListOutput, error) {
	kind, err := ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(input.Query))

	out := &ListOutput{Kind: kind}
	if kind == codec.KindPolicies {
		policies := filter(st.Policies(), query, policyText)
		p, start, end := page(input.Limit, input.Offset, len(policies))
		out.Policies = policies[start:end]
		out.Pagination = p
		return out, nil
	}

	contacts := filter(st.Contacts(), query, contactText)
	p, start, end := page(input.Limit, input.Offset, len(contacts))
	out.Contacts = contacts[start:end]
	out.Pagination = p
	return out, nil
}

// Recent returns the recently viewed contacts, newest first.
// IDs whose contact no longer exists are skipped.
func Recent(st *state.State) []record.Contact {
	out := []record.Contact{}
	for _, id := range st.RecentIDs() {
		if c, ok := st.Contact(id); ok {
			out = append(out, c)
		}
	}
	return out
}

func filter[T any](items []T, query string, text func(*T) string) []T {
	if query == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for i := range items {
		if strings.Contains(strings.ToLower(text(&items[i])), query) {
			out = append(out, items[i])
		}
	}
	return out
}

// contactText is the searchable text of a contact: names, company, email and tags.
func contactText(c *record.Contact) string {
	parts := make([]string, 0, 8)
	for _, name := range []string{"companyName", "name", "furigana", "department", "email"} {
		if v := *c.TextField(name); v != nil {
			parts = append(parts, *v)
		}
	}
	parts = append(parts, c.Tags...)
	return strings.Join(parts, "\n")
}

func policyText(p *record.Policy) string {
	parts := []string{p.Title}
	for _, f := range p.Fields {
		parts = append(parts, f.Value)
	}
	return strings.Join(parts, "\n")
}
