package lock

import (
	"context"
	"sync"
)

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex блокировка в памяти процесса. Разные ключи не мешают друг другу,
// неиспользуемые ключи удаляются.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

// NewKeyedMutex создаёт пустой набор блокировок
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

// Lock ждёт освобождения ключа или отмены контекста
func (km *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	km.mu.Lock()
	entry, ok := km.entries[key]
	if !ok {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		km.entries[key] = entry
	}
	entry.refs++
	km.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		km.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			km.release(key, entry)
		})
	}, nil
}

// Size количество ключей, которые сейчас кем-то удерживаются или ожидаются
func (km *KeyedMutex) Size() int {
	km.mu.Lock()
	defer km.mu.Unlock()

	return len(km.entries)
}

func (km *KeyedMutex) release(key string, entry *keyedEntry) {
	km.mu.Lock()
	defer km.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(km.entries, key)
	}
}
