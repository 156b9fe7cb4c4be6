package library

import (
	"fmt"
	"sort"
	"sync"
)

// entityLocks serializes operations that touch the same entity. Entries are
// reference counted and dropped once nobody holds or waits for them.
type entityLocks struct {
	mu    sync.Mutex
	locks map[string]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func newEntityLocks() *entityLocks {
	return &entityLocks{locks: make(map[string]*entityLock)}
}

func authorKey(id int64) string { return fmt.Sprintf("author:%d", id) }

func bookKey(id int64) string { return fmt.Sprintf("book:%d", id) }

// lock acquires every key in sorted order and returns the matching unlock.
func (l *entityLocks) lock(keys ...string) func() {
	keys = uniqueSorted(keys)

	held := make([]*entityLock, 0, len(keys))
	for _, key := range keys {
		l.mu.Lock()
		el, ok := l.locks[key]
		if !ok {
			el = &entityLock{}
			l.locks[key] = el
		}
		el.refs++
		l.mu.Unlock()

		el.mu.Lock()
		held = append(held, el)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			el := held[i]
			el.mu.Unlock()

			l.mu.Lock()
			el.refs--
			if el.refs == 0 {
				delete(l.locks, keys[i])
			}
			l.mu.Unlock()
		}
	}
}

func uniqueSorted(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i > 0 && k == out[n-1] {
			continue
		}
		out[n] = k
		n++
	}
	return out[:n]
}
