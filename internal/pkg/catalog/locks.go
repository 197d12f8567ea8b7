package catalog

import "sync"

// productLocks serializes remote mutations per product so two price events
// for the same product cannot race each other onto the default-price pointer.
// In-process only: concurrent processes can still race, which the
// idempotency keys bound but do not eliminate.
type productLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[uint]*sync.Mutex)}
}

// Lock acquires the mutex for productID and returns its unlock func.
func (l *productLocks) Lock(productID uint) func() {
	l.mu.Lock()
	m, ok := l.locks[productID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[productID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
