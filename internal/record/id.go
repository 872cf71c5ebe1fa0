package record

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewContactID derives a contact ID from the creation time plus three random
// digits, so records created within the same millisecond rarely collide.
func NewContactID(now time.Time) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return now.UnixMilli() * 1000
	}
	return now.UnixMilli()*1000 + n.Int64()
}

// NewULID generates a monotonic ULID for policies, policy fields and memos.
func NewULID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}
