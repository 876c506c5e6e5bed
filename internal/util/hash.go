// Package util contains internal helpers (hashing, sharding, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import "github.com/zeebo/xxh3"

// HashName hashes a resource name for shard selection.
// xxh3 is non-cryptographic; names are caller-chosen and not adversarial.
func HashName(name string) uint64 {
	return xxh3.HashString(name)
}
