package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/group_sub_server/internal/model/dto"
)

type fakeSweeper struct {
	mu    sync.Mutex
	calls int
	errs  []error
	panic bool
}

func (f *fakeSweeper) Sweep(context.Context) (*dto.SweepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.panic {
		panic("boom")
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &dto.SweepResult{}, nil
}

func (f *fakeSweeper) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func setupCronService(t *testing.T, sweeper *fakeSweeper) (*Service, clockwork.FakeClock, func()) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	svc := NewService(sweeper, clock, 6*time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	cleanup := func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("scheduler did not stop")
		}
	}

	return svc, clock, cleanup
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(&fakeSweeper{}, clockwork.NewFakeClock(), 0, 0)
	assert.Equal(t, 6*time.Hour, svc.interval)
	assert.Equal(t, 6*time.Hour, svc.retryDelay)
	assert.NotNil(t, svc.stopChan)

	svc = NewService(&fakeSweeper{}, clockwork.NewFakeClock(), time.Hour, 2*time.Hour)
	assert.Equal(t, time.Hour, svc.retryDelay)
}

func TestService_WaitsFullInterval(t *testing.T) {
	sweeper := &fakeSweeper{}
	_, clock, cleanup := setupCronService(t, sweeper)
	defer cleanup()

	clock.BlockUntil(1)
	clock.Advance(5 * time.Hour)
	assert.Equal(t, 0, sweeper.count())

	clock.Advance(time.Hour)
	assert.Eventually(t, func() bool { return sweeper.count() == 1 }, time.Second, 5*time.Millisecond)

	clock.BlockUntil(1)
	clock.Advance(time.Hour)
	assert.Never(t, func() bool { return sweeper.count() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestService_RetriesAfterFailure(t *testing.T) {
	sweeper := &fakeSweeper{errs: []error{errors.New("database is locked")}}
	_, clock, cleanup := setupCronService(t, sweeper)
	defer cleanup()

	clock.BlockUntil(1)
	clock.Advance(6 * time.Hour)
	require.Eventually(t, func() bool { return sweeper.count() == 1 }, time.Second, 5*time.Millisecond)

	clock.BlockUntil(1)
	clock.Advance(time.Hour)
	assert.Eventually(t, func() bool { return sweeper.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestService_SurvivesPanic(t *testing.T) {
	sweeper := &fakeSweeper{panic: true}
	_, clock, cleanup := setupCronService(t, sweeper)
	defer cleanup()

	clock.BlockUntil(1)
	clock.Advance(6 * time.Hour)
	require.Eventually(t, func() bool { return sweeper.count() == 1 }, time.Second, 5*time.Millisecond)

	clock.BlockUntil(1)
	clock.Advance(time.Hour)
	assert.Eventually(t, func() bool { return sweeper.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestService_Stop(t *testing.T) {
	svc := NewService(&fakeSweeper{}, clockwork.NewFakeClock(), time.Hour, time.Minute)

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	svc.Stop()
	svc.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestService_RunNow(t *testing.T) {
	sweeper := &fakeSweeper{}
	svc := NewService(sweeper, clockwork.NewFakeClock(), time.Hour, time.Minute)

	result, err := svc.RunNow(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, 1, sweeper.count())

	sweeper.panic = true
	_, err = svc.RunNow(context.Background())
	assert.Error(t, err)
}
