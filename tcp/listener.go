package tcp

import (
	"context"
	"net"
	"sync"

	"go.uber.org/zap"
)

// Listener accepts connections and spawns one handler goroutine per
// connection, translated from the source's Listener (listener.rs) plus
// server.rs's run() wrapper. Shutdown is driven by ctx: once it is done,
// the listener stops accepting and every in-flight handler is signaled to
// stop, matching the source's notify_shutdown broadcast.
type Listener struct {
	ln     net.Listener
	logger *zap.Logger
}

// Listen opens a TCP listener on addr.
func Listen(network, addr string, logger *zap.Logger) (*Listener, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, logger: logger}, nil
}

// Run accepts connections until ctx is done, running h over each on its
// own goroutine, and returns once every in-flight handler has exited.
func (l *Listener) Run(ctx context.Context, h Handle) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			l.ln.Close()
		case <-stopped:
		}
	}()
	defer close(stopped)

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()

			c := NewConnection(conn)
			if err := runHandler(ctx, h, c); err != nil && l.logger != nil {
				l.logger.Error("connection handler error",
					zap.String("remote", conn.RemoteAddr().String()),
					zap.Error(err))
			}
		}()
	}
}

// Close stops accepting new connections immediately.
func (l *Listener) Close() error { return l.ln.Close() }
