package gpu

import "sync"

const numShards = 256

// shardLocks serializes colliding writes to the same texel when several
// threads of one dispatch address it (boundary edges and corners).
type shardLocks struct{ mu [numShards]sync.Mutex }

func (sl *shardLocks) lock(idx int)   { sl.mu[idx&(numShards-1)].Lock() }
func (sl *shardLocks) unlock(idx int) { sl.mu[idx&(numShards-1)].Unlock() }
