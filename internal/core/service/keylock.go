package service

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// keyLocks is a striped mutex set. Keys map to a fixed shard by fnv hash,
// so read-compare-write sequences on the same cache key serialize against
// each other without a lock per key.
type keyLocks struct {
	shards [lockShards]sync.Mutex
}

// lock acquires the shard for key and returns its unlock func.
func (l *keyLocks) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l.shards[int(h.Sum32())%lockShards]
	m.Lock()
	return m.Unlock
}
