package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hpungsan/meishi/internal/codec"
	"github.com/hpungsan/meishi/internal/config"
	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/state"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Kind   string // contacts (default) or policies
	Format string // csv, txt or xlsx; default: from Path extension, else csv
	Path   string // optional, default: <base>/exports/<kind>-<timestamp>.<format>
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string        `json:"path"`
	Kind       codec.Kind    `json:"kind"`
	Format     codec.Dialect `json:"format"`
	Count      int           `json:"count"`
	ExportedAt int64         `json:"exported_at"`
}

// ParseFormat validates an export format. Empty means csv.
func ParseFormat(s string) (codec.Dialect, error) {
	switch codec.Dialect(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case "", codec.DialectCSV:
		return codec.DialectCSV, nil
	case codec.DialectTXT:
		return codec.DialectTXT, nil
	case codec.DialectXLSX:
		return codec.DialectXLSX, nil
	}
	return "", errors.NewInvalidRequest("format must be csv, txt or xlsx")
}

// Encode writes the current collection of kind to w and returns the record count.
func Encode(w io.Writer, st *state.State, kind codec.Kind, format codec.Dialect) (int, error) {
	var err error
	var count int
	if kind == codec.KindPolicies {
		policies := st.Policies()
		count = len(policies)
		switch format {
		case codec.DialectTXT:
			err = codec.EncodePoliciesTXT(w, policies)
		case codec.DialectXLSX:
			err = codec.EncodePoliciesXLSX(w, policies)
		default:
			err = codec.EncodePoliciesCSV(w, policies)
		}
	} else {
		contacts := st.Contacts()
		count = len(contacts)
		switch format {
		case codec.DialectTXT:
			err = codec.EncodeContactsTXT(w, contacts)
		case codec.DialectXLSX:
			err = codec.EncodeContactsXLSX(w, contacts)
		default:
			err = codec.EncodeContactsCSV(w, contacts)
		}
	}
	if err != nil {
		return 0, errors.NewInternal(fmt.Errorf("failed to encode %s: %w", kind, err))
	}
	return count, nil
}

// Export writes a collection to a file on disk.
func Export(ctx context.Context, st *state.State, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	kind, err := ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}
	format, err := resolveFormat(input.Format, input.Path)
	if err != nil {
		return nil, err
	}

	now := st.Now()
	exportPath := input.Path
	if exportPath == "" {
		exportPath = defaultExportPath(kind, format, now)
	}

	// Validate ALL paths (both user-provided and default) for security
	if err := ValidatePath(exportPath, PathCheckWrite, ExportExtensions, cfg); err != nil {
		return nil, err
	}

	var count int
	err = writeAtomic(ctx, exportPath, func(w io.Writer) error {
		var encErr error
		count, encErr = Encode(w, st, kind, format)
		return encErr
	})
	if err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Kind:       kind,
		Format:     format,
		Count:      count,
		ExportedAt: now.Unix(),
	}, nil
}

// writeAtomic writes a validated path through a temp file and a rename,
// so a failed write leaves any existing file untouched.
func writeAtomic(ctx context.Context, path string, write func(io.Writer) error) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	// Clean up temp file on failure (original file is preserved)
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if ctx.Err() != nil {
		return errors.NewCancelled("export")
	}

	if err := write(file); err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		return errors.NewInternal(err)
	}

	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}

	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	// On Windows, os.Rename fails if the destination exists. Fail and keep
	// the existing file rather than delete-then-rename.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows yet (choose a new path or delete the existing file)")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}

// resolveFormat reconciles an explicit format with the path extension.
func resolveFormat(format, path string) (codec.Dialect, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if strings.TrimSpace(format) == "" {
		if path == "" {
			return codec.DialectCSV, nil
		}
		return ParseFormat(ext)
	}

	f, err := ParseFormat(format)
	if err != nil {
		return "", err
	}
	if path != "" && ext != string(f) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("path extension .%s does not match format %s", ext, f))
	}
	return f, nil
}

// defaultExportPath generates the default export path.
// Format: <base>/exports/<kind>-<timestamp>.<format>
func defaultExportPath(kind codec.Kind, format codec.Dialect, now time.Time) string {
	filename := fmt.Sprintf("%s-%s.%s", kind, now.Format("2006-01-02T150405"), format)
	return filepath.Join(DefaultExportsDir(), filename)
}

// ExportFilename returns the attachment name for a download of kind in format.
func ExportFilename(kind codec.Kind, format codec.Dialect, now time.Time) string {
	return filepath.Base(defaultExportPath(kind, format, now))
}
