package tcp

import (
	"context"
	"errors"
)

// Handle processes one accepted connection until it closes or ctx is
// done, translated from the source's Handle trait (handler.rs). An
// implementation typically loops calling conn.ReadFrame/WriteFrame.
type Handle func(ctx context.Context, conn *Connection) error

// runHandler races h against ctx cancellation, mirroring the source's
// Handler::run's tokio::select! between the handler future and the
// broadcast shutdown receiver. Go's closed-channel/context cancellation
// is the idiomatic equivalent of a one-shot tokio::sync::broadcast here:
// both deliver the same "stop" signal to every in-flight goroutine
// simultaneously, without needing a hand-rolled fan-out type.
func runHandler(ctx context.Context, h Handle, conn *Connection) error {
	done := make(chan error, 1)
	go func() { done <- h(ctx, conn) }()

	select {
	case err := <-done:
		if errors.Is(err, ErrExit) {
			return nil
		}
		return err
	case <-ctx.Done():
		return nil
	}
}
