package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrierWaitBlocksUntilTicketDropped(t *testing.T) {
	b := NewBarrier(context.Background())
	b.WaitGroup().Add(1)

	done := make(chan struct{})
	go func() {
		b.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before ticket was dropped")
	case <-time.After(20 * time.Millisecond):
	}

	b.WaitGroup().Done()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after ticket was dropped")
	}
}

func TestRunReturnsServeError(t *testing.T) {
	b := NewBarrier(context.Background())
	wantErr := errors.New("serve failed")

	err := Run(context.Background(), b, func(ctx context.Context) error {
		return wantErr
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestRunWaitsOnBarrierWhenCtxCancelled(t *testing.T) {
	b := NewBarrier(context.Background())
	b.WaitGroup().Add(1)

	ctx, cancel := context.WithCancel(context.Background())

	serveReturned := make(chan struct{})
	runReturned := make(chan struct{})
	go func() {
		_ = Run(ctx, b, func(c context.Context) error {
			<-c.Done()
			close(serveReturned)
			return c.Err()
		}, nil)
		close(runReturned)
	}()

	cancel()

	select {
	case <-serveReturned:
	case <-time.After(time.Second):
		t.Fatal("serve did not observe cancellation")
	}

	select {
	case <-runReturned:
		t.Fatal("Run returned before the barrier ticket was dropped")
	case <-time.After(20 * time.Millisecond):
	}

	b.WaitGroup().Done()

	select {
	case <-runReturned:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the barrier ticket was dropped")
	}
}
