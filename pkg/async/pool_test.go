package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"social-im/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.AsyncConfig {
	return config.AsyncConfig{
		PoolSize:       4,
		ExpiryDuration: time.Second,
		ReleaseTimeout: time.Second,
		TaskTimeout:    time.Second,
	}
}

func TestRunSafe_DetachesFromParentCancellation(t *testing.T) {
	p, err := New(testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Release() })

	type key struct{}
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "v"))
	cancel()

	done := make(chan error, 1)
	p.RunSafe(parent, func(ctx context.Context) {
		assert.Equal(t, "v", ctx.Value(key{}))
		done <- ctx.Err()
	})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestRunSafe_RecoversPanics(t *testing.T) {
	p, err := New(testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Release() })

	var wg sync.WaitGroup
	wg.Add(2)
	p.RunSafe(context.Background(), func(context.Context) {
		defer wg.Done()
		panic("boom")
	})
	p.RunSafe(context.Background(), func(context.Context) {
		defer wg.Done()
	})
	wg.Wait()
}

func TestRunSafe_NilPoolFallsBackToGoroutine(t *testing.T) {
	var p *Pool
	done := make(chan struct{})
	p.RunSafe(context.Background(), func(context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	assert.NoError(t, p.Release())
	assert.Zero(t, p.Running())
}
