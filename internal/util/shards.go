package util

import "runtime"

// maxShards caps the automatic shard count. Resource caches hold few,
// heavy entries, so more shards than this only costs memory.
const maxShards = 64

// NextPow2 returns the smallest power of two >= x.
// x == 0 yields 1; an overflowing result is clamped to 1<<63.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	if x == 0 {
		return 1 << 63
	}
	return x
}

// ShardCount normalizes a requested shard count: non-positive means auto
// (nextPow2(GOMAXPROCS), clamped to [1..maxShards]); anything else is
// rounded up to a power of two.
func ShardCount(requested int) int {
	if requested > 0 {
		return int(NextPow2(uint64(requested)))
	}
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p)))
	if n > maxShards {
		n = maxShards
	}
	return n
}

// ShardIndex maps a hash onto one of shards buckets.
// shards must be a power of two (see ShardCount).
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	return int(hash & uint64(shards-1))
}
