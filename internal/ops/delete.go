package ops

import (
	"context"
	"strconv"
	"strings"

	"github.com/hpungsan/meishi/internal/codec"
	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/state"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	Kind string // contacts (default) or policies
	ID   string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Kind    codec.Kind `json:"kind"`
	ID      string     `json:"id"`
	Deleted bool       `json:"deleted"`
	Warning string     `json:"warning,omitempty"`
}

// Delete removes one contact or policy. Deletion is permanent.
func Delete(ctx context.Context, st *state.State, input DeleteInput) (*DeleteOutput, error) {
	kind, err := ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}

	var opErr error
	var id string
	if kind == codec.KindPolicies {
		id = strings.TrimSpace(input.ID)
		if id == "" {
			return nil, errors.NewInvalidRequest("policy id is required")
		}
		_, opErr = st.DeletePolicy(ctx, id)
	} else {
		cid, err := ParseContactID(input.ID)
		if err != nil {
			return nil, err
		}
		id = strconv.FormatInt(cid, 10)
		_, opErr = st.DeleteContact(ctx, cid)
	}

	out := &DeleteOutput{Kind: kind, ID: id, Deleted: true}
	if out.Warning, err = warning(opErr); err != nil {
		return nil, err
	}
	return out, nil
}
