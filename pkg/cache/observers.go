package cache

import "sync"

type observer[T any] struct {
	id int
	fn func(T)
}

// observers is an ordered subscriber list. Notification walks a snapshot so a
// callback may unsubscribe itself.
type observers[T any] struct {
	mu     sync.Mutex
	nextID int
	list   []observer[T]
}

func (o *observers[T]) add(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	o.list = append(o.list, observer[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { o.remove(id) })
	}
}

func (o *observers[T]) remove(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, obs := range o.list {
		if obs.id == id {
			o.list = append(o.list[:i:i], o.list[i+1:]...)
			return
		}
	}
}

func (o *observers[T]) notify(v T) {
	o.mu.Lock()
	snapshot := make([]observer[T], len(o.list))
	copy(snapshot, o.list)
	o.mu.Unlock()

	for _, obs := range snapshot {
		obs.fn(v)
	}
}
