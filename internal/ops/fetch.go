package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/record"
	"github.com/hpungsan/meishi/internal/state"
)

// FetchContactOutput contains the result of the FetchContact operation.
type FetchContactOutput struct {
	record.Contact
	Warning string `json:"warning,omitempty"`
}

// FetchContact returns one contact and moves it to the front of the recent list.
func FetchContact(ctx context.Context, st *state.State, id string) (*FetchContactOutput, error) {
	cid, err := ParseContactID(id)
	if err != nil {
		return nil, err
	}

	c, ok := st.Contact(cid)
	if !ok {
		return nil, errors.NewNotFound("contact", strings.TrimSpace(id))
	}

	out := &FetchContactOutput{Contact: c}
	if out.Warning, err = warning(st.TouchRecent(ctx, cid)); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchPolicy returns one policy.
func FetchPolicy(st *state.State, id string) (*record.Policy, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("policy id is required")
	}
	p, ok := st.Policy(id)
	if !ok {
		return nil, errors.NewNotFound("policy", id)
	}
	return &p, nil
}
