package ops

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/meishi/internal/codec"
	"github.com/hpungsan/meishi/internal/config"
	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/kvstore"
	"github.com/hpungsan/meishi/internal/state"
)

var testNow = time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestState opens a state over a fresh SQLite store in a temp dir.
func newTestState(t *testing.T) *state.State {
	t.Helper()
	store, err := kvstore.OpenSQLite(t.TempDir(), config.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return openState(t, store)
}

func openState(t *testing.T, store kvstore.Store) *state.State {
	t.Helper()
	st, err := state.Open(context.Background(), store,
		state.WithLogger(quietLogger()),
		state.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return st
}

// brokenStore loads empty and fails every write.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (brokenStore) Put(context.Context, string, []byte) error { return stderrors.New("read-only") }
func (brokenStore) Close() error { return nil }

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want codec.Kind
		ok   bool
	}{
		{"", codec.KindContacts, true},
		{"contacts", codec.KindContacts, true},
		{"Policy", codec.KindPolicies, true},
		{" policies ", codec.KindPolicies, true},
		{"memos", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseKind(tc.in)
			if !tc.ok {
				if !errors.Is(err, errors.ErrInvalidRequest) {
					t.Errorf("expected ErrInvalidRequest, got: %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("ParseKind(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
		})
	}
}

func TestParseContactID(t *testing.T) {
	id, err := ParseContactID(" 1711963800000123 ")
	if err != nil || id != 1711963800000123 {
		t.Errorf("ParseContactID = %d, %v", id, err)
	}

	for _, bad := range []string{"", "abc", "-5", "0", "1.5"} {
		if _, err := ParseContactID(bad); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("ParseContactID(%q): expected ErrInvalidRequest, got: %v", bad, err)
		}
	}
}

func TestPage(t *testing.T) {
	tests := []struct {
		name          string
		limit, offset int
		total         int
		wantStart     int
		wantEnd       int
		wantLimit     int
		wantHasMore   bool
	}{
		{"defaults", 0, 0, 50, 0, 20, 20, true},
		{"last page", 20, 40, 50, 40, 50, 20, false},
		{"limit capped", 500, 0, 150, 0, 100, 100, true},
		{"offset past end", 10, 80, 50, 50, 50, 10, false},
		{"negative offset", 10, -3, 5, 0, 5, 10, false},
		{"empty", 10, 0, 0, 0, 0, 10, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, start, end := page(tc.limit, tc.offset, tc.total)
			if start != tc.wantStart || end != tc.wantEnd {
				t.Errorf("bounds = [%d:%d], want [%d:%d]", start, end, tc.wantStart, tc.wantEnd)
			}
			if p.Limit != tc.wantLimit || p.HasMore != tc.wantHasMore || p.Total != tc.total {
				t.Errorf("pagination = %+v", p)
			}
		})
	}
}

func TestWarning(t *testing.T) {
	msg, err := warning(nil)
	require.NoError(t, err)
	require.Empty(t, msg)

	msg, err = warning(errors.NewPersistenceFailure("contacts", stderrors.New("disk full")))
	require.NoError(t, err)
	require.Contains(t, msg, "PERSISTENCE_FAILURE")

	_, err = warning(errors.NewNotFound("contact", "1"))
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
