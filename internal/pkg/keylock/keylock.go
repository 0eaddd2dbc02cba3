package keylock

import (
	"context"
	"sync"
)

// Table 按 key 互斥的锁表。同一 key 同时只有一个持有者，
// 没有持有者和等待者的 key 会被回收。
type Table struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	slot chan struct{}
	refs int
}

func New() *Table {
	return &Table{
		locks: make(map[int64]*entry),
	}
}

// Lock 阻塞直到获得 key 的锁或 ctx 结束，返回的 unlock 可重复调用
func (t *Table) Lock(ctx context.Context, key int64) (func(), error) {
	t.mu.Lock()
	e, ok := t.locks[key]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		t.locks[key] = e
	}
	e.refs++
	t.mu.Unlock()

	select {
	case e.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.slot
				t.release(key, e)
			})
		}, nil
	case <-ctx.Done():
		t.release(key, e)
		return nil, ctx.Err()
	}
}

func (t *Table) release(key int64, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(t.locks, key)
	}
}

// Len 当前被持有或等待中的 key 数量
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
