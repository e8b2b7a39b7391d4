package cache

import (
	"context"
	"sync"
)

type subscriber struct {
	id    int
	onMsg func([]byte)
}

type fanout struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string][]subscriber
}

func newFanout() *fanout {
	return &fanout{subs: map[string][]subscriber{}}
}

// add registers onMsg until ctx ends.
func (f *fanout) add(ctx context.Context, channel string, onMsg func([]byte)) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs[channel] = append(f.subs[channel], subscriber{id: id, onMsg: onMsg})
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		list := f.subs[channel]
		for i, s := range list {
			if s.id == id {
				f.subs[channel] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}()
}

func (f *fanout) publish(channel string, payload []byte) {
	f.mu.RLock()
	list := append([]subscriber(nil), f.subs[channel]...)
	f.mu.RUnlock()
	for _, s := range list {
		s.onMsg(payload)
	}
}
