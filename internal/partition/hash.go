package partition

import "hash/fnv"

// Hash deterministically maps a UVE key to one of total partitions
// (spec.md §3: "each UVE key deterministically hashes to exactly one
// partition"). It must be stable across process restarts, so it is a pure
// function of (key, total) with no process-local salt.
func Hash(key string, total int) int {
	if total <= 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(total))
}
