package sourcecache

import (
	"context"
	"sync"
)

// keyState tracks one cache slot: a one-token semaphore guarding mutation,
// the goroutines holding or waiting for it, and the number of live leases.
type keyState struct {
	sem    chan struct{}
	refs   int
	leases int
}

// keyedLocks is a map of per-key mutexes whose acquire honours ctx.
// Entries are dropped once nobody holds, waits or leases.
type keyedLocks struct {
	mu   sync.Mutex
	keys map[string]*keyState
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{keys: make(map[string]*keyState)}
}

func (k *keyedLocks) state(key string) *keyState {
	st, ok := k.keys[key]
	if !ok {
		st = &keyState{sem: make(chan struct{}, 1)}
		k.keys[key] = st
	}
	return st
}

func (k *keyedLocks) gc(key string, st *keyState) {
	if st.refs == 0 && st.leases == 0 {
		delete(k.keys, key)
	}
}

// lock blocks until key is free or ctx is done
func (k *keyedLocks) lock(ctx context.Context, key string) error {
	k.mu.Lock()
	st := k.state(key)
	st.refs++
	k.mu.Unlock()

	select {
	case st.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.mu.Lock()
		st.refs--
		k.gc(key, st)
		k.mu.Unlock()
		return ctx.Err()
	}
}

// tryLock takes key only if it is free and has no live leases
func (k *keyedLocks) tryLock(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	st := k.state(key)
	if st.leases > 0 {
		k.gc(key, st)
		return false
	}

	select {
	case st.sem <- struct{}{}:
		st.refs++
		return true
	default:
		k.gc(key, st)
		return false
	}
}

func (k *keyedLocks) unlock(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	st, ok := k.keys[key]
	if !ok {
		return
	}
	<-st.sem
	st.refs--
	k.gc(key, st)
}

func (k *keyedLocks) addLease(key string) {
	k.mu.Lock()
	k.state(key).leases++
	k.mu.Unlock()
}

func (k *keyedLocks) dropLease(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	st, ok := k.keys[key]
	if !ok {
		return
	}
	st.leases--
	k.gc(key, st)
}

func (k *keyedLocks) leased(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	st, ok := k.keys[key]
	return ok && st.leases > 0
}
