package credential

import (
	"context"
	"sync"
)

// KeyedMutex is an in-process Locker. It is used when Redis is not
// configured, which limits refresh serialization to a single instance.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is held or ctx is done.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	kl, ok := m.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = kl
	}
	kl.refs++
	m.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-kl.ch
				m.release(key, kl)
			})
		}, nil
	case <-ctx.Done():
		m.release(key, kl)
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) release(key string, kl *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(m.locks, key)
	}
}
