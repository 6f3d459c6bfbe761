package lock

import (
	"context"
	"fmt"
	"sync"
)

type entry struct {
	token chan struct{}
	refs  int
}

// Local is an in-process keyed mutex. Entries live only while somebody holds or waits for them.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewLocal() *Local {
	return &Local{
		entries: make(map[string]*entry),
	}
}

func (that *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	e := that.acquire(key)

	select {
	case e.token <- struct{}{}:
	case <-ctx.Done():
		that.release(key, e)
		return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			<-e.token
			that.release(key, e)
		})
	}, nil
}

// Held reports how many keys currently have holders or waiters.
func (that *Local) Held() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.entries)
}

func (that *Local) acquire(key string) *entry {
	that.mu.Lock()
	defer that.mu.Unlock()

	e, ok := that.entries[key]
	if !ok {
		e = &entry{token: make(chan struct{}, 1)}
		that.entries[key] = e
	}

	e.refs++

	return e
}

func (that *Local) release(key string, e *entry) {
	that.mu.Lock()
	defer that.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(that.entries, key)
	}
}
