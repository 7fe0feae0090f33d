package governor

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyedMutex serializes work per key with a fixed set of striped mutexes.
// Collisions between accounts only cost contention, never correctness.
type keyedMutex struct {
	stripes [lockStripes]sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{}
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
