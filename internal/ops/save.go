package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/record"
	"github.com/hpungsan/meishi/internal/state"
)

// SaveContactOutput contains the result of the CreateContact and UpdateContact operations.
type SaveContactOutput struct {
	record.Contact
	Warning string `json:"warning,omitempty"`
}

// CreateContact stores a new contact. Any ID on c is replaced.
func CreateContact(ctx context.Context, st *state.State, c record.Contact) (*SaveContactOutput, error) {
	c.ID = 0
	saved, err := st.AddContact(ctx, c)
	out := &SaveContactOutput{Contact: saved}
	if out.Warning, err = warning(err); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateContact replaces the contact identified by id with c.
func UpdateContact(ctx context.Context, st *state.State, id string, c record.Contact) (*SaveContactOutput, error) {
	cid, err := ParseContactID(id)
	if err != nil {
		return nil, err
	}
	c.ID = cid

	saved, err := st.UpdateContact(ctx, c)
	out := &SaveContactOutput{Contact: saved}
	if out.Warning, err = warning(err); err != nil {
		return nil, err
	}
	return out, nil
}

// SavePolicyOutput contains the result of the CreatePolicy and UpdatePolicy operations.
type SavePolicyOutput struct {
	record.Policy
	Warning string `json:"warning,omitempty"`
}

// CreatePolicy stores a new policy with a fresh ID.
func CreatePolicy(ctx context.Context, st *state.State, p record.Policy) (*SavePolicyOutput, error) {
	p.ID = ""
	saved, err := st.AddPolicy(ctx, p)
	out := &SavePolicyOutput{Policy: saved}
	if out.Warning, err = warning(err); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePolicy replaces the policy identified by id with p.
func UpdatePolicy(ctx context.Context, st *state.State, id string, p record.Policy) (*SavePolicyOutput, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("policy id is required")
	}
	p.ID = id

	saved, err := st.UpdatePolicy(ctx, p)
	out := &SavePolicyOutput{Policy: saved}
	if out.Warning, err = warning(err); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMemoOutput contains the result of the DeleteMemo operation.
type DeleteMemoOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Warning string `json:"warning,omitempty"`
}

// DeleteMemo removes one memo.
func DeleteMemo(ctx context.Context, st *state.State, id string) (*DeleteMemoOutput, error) {
	out := &DeleteMemoOutput{ID: id, Deleted: true}
	var err error
	if out.Warning, err = warning(st.DeleteMemo(ctx, id)); err != nil {
		return nil, err
	}
	return out, nil
}
