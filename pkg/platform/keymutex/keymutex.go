// Package keymutex serializes work per string key. Analyses for different
// fingerprint digests proceed in parallel; analyses for the same digest must
// not interleave, because pattern computation and event sequencing both assume
// a consistent view of that digest's history.
package keymutex

import (
	"sync"

	dErrors "printtrace/pkg/domain-errors"
)

// KeyMutex provides per-key mutual exclusion with an explicit in-flight guard.
// The guard exists to catch serialization bugs: if two goroutines ever hold
// the same key concurrently, something has bypassed Lock, and the holder
// reports a concurrency-invariant violation rather than corrupting state.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu       sync.Mutex
	waiters  int
	inFlight bool
}

// New creates an empty KeyMutex.
func New() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*entry)}
}

// Lock acquires exclusive ownership of key, blocking until any current owner
// releases it. The returned release function must be called exactly once.
// A non-nil error means the in-flight invariant was already broken by another
// path; the caller must abort its write.
func (k *KeyMutex) Lock(key string) (release func(), err error) {
	k.mu.Lock()
	e := k.locks[key]
	if e == nil {
		e = &entry{}
		k.locks[key] = e
	}
	e.waiters++
	k.mu.Unlock()

	e.mu.Lock()

	if e.inFlight {
		// Another writer is inside the critical section while we hold the
		// key lock. The serialization discipline is broken; refuse to write.
		e.mu.Unlock()
		k.discard(key, e)
		return nil, dErrors.New(dErrors.CodeConcurrencyInvariant,
			"interleaved write detected for key "+key)
	}
	e.inFlight = true

	var once sync.Once
	return func() {
		once.Do(func() {
			e.inFlight = false
			e.mu.Unlock()
			k.discard(key, e)
		})
	}, nil
}

// discard drops a key's entry once no goroutine is using or waiting on it,
// keeping the map from growing with one entry per digest ever seen.
func (k *KeyMutex) discard(key string, e *entry) {
	k.mu.Lock()
	e.waiters--
	if e.waiters == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
