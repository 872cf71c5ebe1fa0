package ops

import (
	"time"

	"github.com/hpungsan/meishi/internal/record"
)

// ReconcileResult is the part of a decoded batch that is new to the collection.
type ReconcileResult[T any] struct {
	Accepted []T
	Imported int
	Skipped  int
}

// ReconcileContacts selects the decoded contacts whose identity key is not
// present in existing. Only existing records are compared against: rows of one
// batch that share a key are all accepted.
//
// Accepted contacts are copies with a fresh ID and no image references.
// Neither existing nor decoded is modified.
func ReconcileContacts(existing, decoded []record.Contact, now time.Time) ReconcileResult[record.Contact] {
	seen := make(map[string]struct{}, len(existing))
	ids := make(map[int64]struct{}, len(existing)+len(decoded))
	for i := range existing {
		seen[existing[i].IdentityKey()] = struct{}{}
		ids[existing[i].ID] = struct{}{}
	}

	res := ReconcileResult[record.Contact]{Accepted: []record.Contact{}}
	for i := range decoded {
		key := decoded[i].IdentityKey()
		if _, dup := seen[key]; dup {
			res.Skipped++
			continue
		}

		c := decoded[i].Clone()
		c.ID = freshContactID(now, ids)
		c.ImageURL = nil
		c.ImageURLBack = nil
		c.CreatedAt = 0
		c.UpdatedAt = 0
		res.Accepted = append(res.Accepted, c)
	}
	res.Imported = len(res.Accepted)
	return res
}

// ReconcilePolicies is ReconcileContacts for policies, keyed by title.
// Accepted policies get a fresh ULID; field IDs are left for the state to assign.
func ReconcilePolicies(existing, decoded []record.Policy, now time.Time) ReconcileResult[record.Policy] {
	seen := make(map[string]struct{}, len(existing))
	for i := range existing {
		seen[existing[i].IdentityKey()] = struct{}{}
	}

	res := ReconcileResult[record.Policy]{Accepted: []record.Policy{}}
	for i := range decoded {
		key := decoded[i].IdentityKey()
		if _, dup := seen[key]; dup {
			res.Skipped++
			continue
		}

		p := decoded[i].Clone()
		p.ID = record.NewULID(now)
		p.ImageURLs = nil
		for j := range p.Fields {
			p.Fields[j].ID = ""
		}
		p.CreatedAt = 0
		p.UpdatedAt = 0
		res.Accepted = append(res.Accepted, p)
	}
	res.Imported = len(res.Accepted)
	return res
}

// freshContactID draws IDs until one is unused. Contact IDs only carry
// millisecond precision plus a small random suffix, so large batches collide;
// after a few misses the timestamp moves forward a millisecond.
func freshContactID(now time.Time, used map[int64]struct{}) int64 {
	for attempt := 1; ; attempt++ {
		id := record.NewContactID(now)
		if _, taken := used[id]; !taken {
			used[id] = struct{}{}
			return id
		}
		if attempt%8 == 0 {
			now = now.Add(time.Millisecond)
		}
	}
}
