package ops

import (
	"strconv"
	"strings"

	"github.com/hpungsan/meishi/internal/codec"
	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/state"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// ParseKind validates a record kind argument. Empty means contacts.
func ParseKind(s string) (codec.Kind, error) {
	if strings.TrimSpace(s) == "" {
		return codec.KindContacts, nil
	}
	kind, ok := codec.ParseKind(s)
	if !ok {
		return "", errors.NewInvalidRequest("kind must be contacts or policies")
	}
	return kind, nil
}

// ParseContactID parses a contact ID argument.
func ParseContactID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequest("contact id must be a positive integer")
	}
	return id, nil
}

// page clamps limit and offset and returns the slice bounds for total items.
func page(limit, offset, total int) (Pagination, int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset = max(offset, 0)

	start := min(offset, total)
	end := min(start+limit, total)
	return Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}, start, end
}

// warning turns a persistence warning into a message for the output.
// Any other error is returned unchanged.
func warning(err error) (string, error) {
	if err == nil {
		return "", nil
	}
	if state.IsWarning(err) {
		return err.Error(), nil
	}
	return "", err
}
