package trader

import "sync"

// busySet marks wallets with a cycle in flight.
type busySet struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newBusySet() *busySet {
	return &busySet{busy: make(map[string]struct{})}
}

// TryAcquire marks id busy and reports false if it already was.
func (b *busySet) TryAcquire(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.busy[id]; ok {
		return false
	}
	b.busy[id] = struct{}{}
	return true
}

func (b *busySet) Release(id string) {
	b.mu.Lock()
	delete(b.busy, id)
	b.mu.Unlock()
}

func (b *busySet) IsBusy(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.busy[id]
	return ok
}
