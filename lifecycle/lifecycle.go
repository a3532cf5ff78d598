// Package lifecycle implements the mesh's cancellation-context +
// completion-barrier pattern (§4.6): a cancellation context lets shutdown
// propagate to every background task simultaneously, and a wait group
// ensures the process doesn't exit until each task has unregistered.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Barrier bundles a cancellation context with the wait group every
// background task holds a ticket against, mirroring the source's
// (Context, WaitGroup) pair passed into each plugin's Synchronize calls.
type Barrier struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBarrier returns a Barrier derived from parent.
func NewBarrier(parent context.Context) *Barrier {
	ctx, cancel := context.WithCancel(parent)
	return &Barrier{ctx: ctx, cancel: cancel}
}

// Context is the cancellation context background tasks should select on.
func (b *Barrier) Context() context.Context { return b.ctx }

// WaitGroup is the completion barrier background tasks hold a ticket
// against until they've unregistered.
func (b *Barrier) WaitGroup() *sync.WaitGroup { return &b.wg }

// Cancel propagates shutdown to every task watching Context().
func (b *Barrier) Cancel() { b.cancel() }

// Wait blocks until every background task has dropped its ticket.
func (b *Barrier) Wait() { b.wg.Wait() }

// Run races serve against SIGINT/SIGTERM, matching run()'s
// tokio::select! { server, ctrl_c() }. On signal, it cancels the barrier
// (propagating to every background task), waits for the wait group to
// drain, then returns. serve is expected to return promptly once ctx is
// done (e.g. an http.Server shut down via Shutdown(ctx)).
func Run(ctx context.Context, barrier *Barrier, serve func(ctx context.Context) error, logger *zap.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serve(gctx)
	})

	g.Go(func() error {
		select {
		case <-sigCh:
			if logger != nil {
				logger.Info("shutdown signal received")
			}
		case <-gctx.Done():
		}
		barrier.Cancel()
		barrier.Wait()
		return nil
	})

	return g.Wait()
}
