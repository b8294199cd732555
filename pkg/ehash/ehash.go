// Package ehash provides the stable 64-bit hash primitive used to key
// KeyMap buckets and to populate Topic.Hash. It is a thin wrapper over
// xxhash so that callers never import the hashing library directly;
// swapping the algorithm later touches only this file.
package ehash

import "github.com/cespare/xxhash/v2"

// Sum64 returns a stable, non-cryptographic 64-bit hash of b. The
// result is deterministic across process runs (xxhash is not seeded),
// which topic.Topic.Hash relies on for reproducible test fixtures.
func Sum64(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// Digest accumulates a hash over multiple writes without
// concatenating its inputs first.
type Digest = xxhash.Digest

// NewDigest returns a ready-to-use Digest.
func NewDigest() *Digest { return xxhash.New() }
