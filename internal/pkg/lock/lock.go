// Package lock provides keyed mutual exclusion for in-process state.
package lock

import (
	"context"
	"sync"
	"time"
)

// keyMutex wraps a mutex with reference counting for cleanup.
type keyMutex struct {
	mu       sync.Mutex
	refCount int
}

// KeyLock hands out one mutex per key. Entries are removed once no
// goroutine holds or waits on them, so the map does not grow with the
// number of distinct keys ever seen.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyMutex)}
}

// acquire returns the mutex for key with its reference held.
func (kl *KeyLock) acquire(key string) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m, ok := kl.locks[key]
	if !ok {
		m = &keyMutex{}
		kl.locks[key] = m
	}
	m.refCount++
	return m
}

// release drops a reference and forgets the mutex when it is unused.
func (kl *KeyLock) release(key string, m *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m.refCount--
	if m.refCount == 0 {
		delete(kl.locks, key)
	}
}

// Lock acquires the lock for key.
func (kl *KeyLock) Lock(key string) {
	kl.acquire(key).mu.Lock()
}

// Unlock releases the lock for key. Unlocking a key that is not held panics,
// as with sync.Mutex.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		panic("lock: unlock of unlocked key " + key)
	}
	m.mu.Unlock()
	kl.release(key, m)
}

// LockContext acquires the lock for key, polling until ctx is done.
func (kl *KeyLock) LockContext(ctx context.Context, key string) error {
	const pollInterval = time.Millisecond

	m := kl.acquire(key)
	for {
		if m.mu.TryLock() {
			return nil
		}
		select {
		case <-ctx.Done():
			kl.release(key, m)
			if ctx.Err() == context.DeadlineExceeded {
				return ErrLockTimeout
			}
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// size returns the number of tracked keys.
func (kl *KeyLock) size() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
