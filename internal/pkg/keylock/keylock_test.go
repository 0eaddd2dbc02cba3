package keylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_SerializesSameKey(t *testing.T) {
	table := New()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := table.Lock(ctx, 1001)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, table.Len())
}

func TestTable_DifferentKeysDoNotBlock(t *testing.T) {
	table := New()
	ctx := context.Background()

	unlockA, err := table.Lock(ctx, 1)
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := table.Lock(ctx, 2)
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestTable_ContextCancelled(t *testing.T) {
	table := New()

	unlock, err := table.Lock(context.Background(), 7)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = table.Lock(ctx, 7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, table.Len())
}

func TestTable_UnlockIsIdempotent(t *testing.T) {
	table := New()
	ctx := context.Background()

	unlock, err := table.Lock(ctx, 3)
	require.NoError(t, err)
	unlock()
	unlock()

	unlock2, err := table.Lock(ctx, 3)
	require.NoError(t, err)
	unlock2()
	assert.Equal(t, 0, table.Len())
}
