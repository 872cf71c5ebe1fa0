package ops

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/record"
)

func TestCreateAndUpdateContact(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)

	in := contact("Acme", "Jane")
	in.ID = 42
	created, err := CreateContact(ctx, st, in)
	require.NoError(t, err)
	require.NotEqual(t, int64(42), created.ID)
	require.Empty(t, created.Warning)

	id := strconv.FormatInt(created.ID, 10)
	edit := created.Contact
	edit.Email = record.String("jane@acme.test")
	updated, err := UpdateContact(ctx, st, id, edit)
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "jane@acme.test", *updated.Email)

	_, err = UpdateContact(ctx, st, "99", edit)
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = UpdateContact(ctx, st, "x", edit)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestCreateContact_PersistenceWarning(t *testing.T) {
	st := openState(t, brokenStore{})

	out, err := CreateContact(context.Background(), st, contact("Acme", "Jane"))
	require.NoError(t, err)
	require.NotEmpty(t, out.Warning)
	require.Len(t, st.Contacts(), 1)
}

func TestCreateAndUpdatePolicy(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)

	created, err := CreatePolicy(ctx, st, record.Policy{ID: "mine", Title: "Auto"})
	require.NoError(t, err)
	require.NotEqual(t, "mine", created.ID)

	edit := created.Policy
	edit.Title = "Fire"
	updated, err := UpdatePolicy(ctx, st, created.ID, edit)
	require.NoError(t, err)
	require.Equal(t, "Fire", updated.Title)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = UpdatePolicy(ctx, st, " ", edit)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	_, err = UpdatePolicy(ctx, st, "missing", edit)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteMemo(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t)

	m, err := st.AddMemo(ctx, "call back", "")
	require.NoError(t, err)

	out, err := DeleteMemo(ctx, st, m.ID)
	require.NoError(t, err)
	require.True(t, out.Deleted)
	require.Empty(t, st.Memos())

	_, err = DeleteMemo(ctx, st, m.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
