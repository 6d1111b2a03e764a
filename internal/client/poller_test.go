package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedCounter struct {
	mu    sync.Mutex
	calls int
}

func (s *scriptedCounter) UnreadCount(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls == 2 {
		return 0, errors.New("temporary failure")
	}
	return s.calls, nil
}

func TestPollerFetchesImmediatelyAndKeepsGoing(t *testing.T) {
	source := &scriptedCounter{}
	counts := make(chan int, 10)
	errs := make(chan error, 10)

	p := NewPoller(source, func(n int) {
		select {
		case counts <- n:
		default:
		}
	}, func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	p.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case n := <-counts:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("no immediate fetch")
	}
	select {
	case err := <-errs:
		assert.EqualError(t, err, "temporary failure")
	case <-time.After(time.Second):
		t.Fatal("error not reported")
	}
	select {
	case n := <-counts:
		assert.Equal(t, 3, n)
	case <-time.After(time.Second):
		t.Fatal("poller stopped after an error")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerDefaults(t *testing.T) {
	p := NewPoller(&scriptedCounter{}, nil, nil)
	require.Equal(t, DefaultPollInterval, p.Interval)
	assert.Equal(t, 30*time.Second, p.Interval)
}
