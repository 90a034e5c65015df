//go:build linux

package eventfd_test

import (
	"testing"
	"time"

	"github.com/slackhq/vring/eventfd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gveventfd "gvisor.dev/gvisor/pkg/eventfd"
)

func TestKickAck(t *testing.T) {
	e, err := eventfd.New()
	require.NoError(t, err)
	defer e.Close()

	// Nothing pending on a fresh descriptor.
	count, err := e.Ack()
	require.NoError(t, err)
	assert.Zero(t, count)

	// Kicks accumulate into one counter value.
	require.NoError(t, e.Kick())
	require.NoError(t, e.Kick())

	count, err = e.Ack()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	count, err = e.Ack()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEpollWait(t *testing.T) {
	e1, err := eventfd.New()
	require.NoError(t, err)
	defer e1.Close()
	e2, err := eventfd.New()
	require.NoError(t, err)
	defer e2.Close()

	ep, err := eventfd.NewEpoll()
	require.NoError(t, err)
	defer ep.Close()
	require.NoError(t, ep.Add(e1))
	require.NoError(t, ep.Add(e2))

	require.NoError(t, e2.Kick())

	fd, err := ep.Wait()
	require.NoError(t, err)
	assert.Equal(t, e2.FD(), fd)
}

// The descriptor must interoperate with other eventfd users sharing the fd,
// such as a kernel vhost device or another process.
func TestForeignNotify(t *testing.T) {
	e, err := eventfd.New()
	require.NoError(t, err)
	defer e.Close()

	foreign := gveventfd.Wrap(e.FD())
	require.NoError(t, foreign.Notify())

	count, err := e.Ack()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

// Tests how a waiter blocked on the descriptor can be gracefully stopped by
// kicking it one last time.
func TestCancelWait(t *testing.T) {
	e, err := eventfd.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, e.Close())
	})

	ep, err := eventfd.NewEpoll()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, ep.Close())
	})
	require.NoError(t, ep.Add(e))

	var stop bool

	done := make(chan struct{})
	go func() {
		for !stop {
			_, _ = ep.Wait()
		}
		close(done)
	}()
	select {
	case <-done:
		t.Fatalf("goroutine ended early")
	case <-time.After(500 * time.Millisecond):
	}

	stop = true
	assert.NoError(t, e.Kick())
	select {
	case <-done:
		break
	case <-time.After(5 * time.Second):
		t.Error("goroutine did not end")
	}
}
