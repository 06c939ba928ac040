package orchestrator

import "sync"

// keyedMutex hands out one lock per package manager name.
// Locks are buffered channels so a waiting worker blocks on a channel receive.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]chan struct{})}
}

// Lock acquires the lock for key and returns its unlock function.
// The empty key needs no lock.
func (k *keyedMutex) Lock(key string) func() {
	if key == "" {
		return func() {}
	}

	k.mu.Lock()
	sem, ok := k.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		k.locks[key] = sem
	}
	k.mu.Unlock()

	sem <- struct{}{}
	return func() { <-sem }
}
