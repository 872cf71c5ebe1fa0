package ops

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/meishi/internal/codec"
	"github.com/hpungsan/meishi/internal/config"
	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/record"
	"github.com/hpungsan/meishi/internal/state"
)

// MaxImportBytes caps the size of one import file.
const MaxImportBytes = 10 << 20

// ImportInput contains parameters for the Import operation.
// Either Path is set (a file on disk) or Filename and Content (an upload).
type ImportInput struct {
	Path     string
	Filename string
	Content  string
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Kind     codec.Kind    `json:"kind"`
	Dialect  codec.Dialect `json:"dialect"`
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Warning  string        `json:"warning,omitempty"`
}

// Import decodes a CSV or TXT file and appends the records that are not yet in st.
//
// The file is sniffed and decoded completely before the state is touched, so a
// format error leaves the collection unchanged. All new records are committed
// with one mutation.
func Import(ctx context.Context, st *state.State, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	filename, content, err := readImport(cfg, input)
	if err != nil {
		return nil, err
	}

	batch, err := codec.Decode(filename, content)
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, errors.NewCancelled("import")
	}

	out := &ImportOutput{Kind: batch.Format.Kind, Dialect: batch.Format.Dialect}
	now := st.Now()

	var commitErr error
	switch batch.Format.Kind {
	case codec.KindPolicies:
		_, commitErr = st.AppendPolicies(ctx, func(existing []record.Policy) []record.Policy {
			res := ReconcilePolicies(existing, batch.Policies, now)
			out.Imported, out.Skipped = res.Imported, res.Skipped
			return res.Accepted
		})
	default:
		_, commitErr = st.AppendContacts(ctx, func(existing []record.Contact) []record.Contact {
			res := ReconcileContacts(existing, batch.Contacts, now)
			out.Imported, out.Skipped = res.Imported, res.Skipped
			return res.Accepted
		})
	}

	if out.Warning, err = warning(commitErr); err != nil {
		return nil, err
	}
	return out, nil
}

// readImport returns the file name used for sniffing and the file content.
func readImport(cfg *config.Config, input ImportInput) (string, string, error) {
	if input.Path == "" {
		if input.Filename == "" {
			return "", "", errors.NewInvalidRequest("path or filename is required")
		}
		if len(input.Content) > MaxImportBytes {
			return "", "", errors.NewInvalidRequest(fmt.Sprintf("import file exceeds %d bytes", MaxImportBytes))
		}
		return filepath.Base(input.Filename), input.Content, nil
	}

	if !slices.Contains(ImportExtensions, strings.ToLower(filepath.Ext(input.Path))) {
		return "", "", errors.NewUnsupportedFormat(filepath.Base(input.Path))
	}
	if err := ValidatePath(input.Path, PathCheckRead, ImportExtensions, cfg); err != nil {
		return "", "", err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return "", "", err
		}
		return "", "", errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImportBytes+1))
	if err != nil {
		return "", "", errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(data) > MaxImportBytes {
		return "", "", errors.NewInvalidRequest(fmt.Sprintf("import file exceeds %d bytes", MaxImportBytes))
	}
	return filepath.Base(input.Path), string(data), nil
}
