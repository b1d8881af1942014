package application

import "sync"

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// lockManager serializes writers. A request lock is always taken before a
// member lock so two operations never wait on each other in reverse order.
type lockManager struct {
	requests *keyedMutex
	members  *keyedMutex
}

func newLockManager() *lockManager {
	return &lockManager{requests: newKeyedMutex(), members: newKeyedMutex()}
}

func (l *lockManager) lockRequest(id string) func() {
	return l.requests.Lock(id)
}

func (l *lockManager) lockMember(id string) func() {
	return l.members.Lock(id)
}
