package tcp

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineFrame is a minimal test frame: a 2-byte big-endian length prefix
// followed by that many bytes of payload.
type lineFrame struct {
	Payload []byte
}

func (lineFrame) Read(cur *Cursor) (Frame, error) {
	if cur.Len() < 2 {
		return nil, ErrIncomplete
	}

	header := cur.Peek(2)
	n := int(binary.BigEndian.Uint16(header))

	if cur.Len() < 2+n {
		return nil, ErrIncomplete
	}

	if err := cur.Advance(2); err != nil {
		return nil, err
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(cur, payload); err != nil {
		return nil, err
	}

	return lineFrame{Payload: payload}, nil
}

func (f lineFrame) Write(w io.Writer) error {
	var header [2]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(f.Payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(f.Payload)
	return err
}

func TestCursorPeekAdvanceConsumed(t *testing.T) {
	cur := NewCursor([]byte("hello world"))

	assert.Equal(t, []byte("he"), cur.Peek(2))
	require.NoError(t, cur.Advance(6))
	assert.Equal(t, 6, cur.Consumed())

	rest := make([]byte, 5)
	n, err := cur.Read(rest)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(rest))
	assert.Equal(t, 11, cur.Consumed())
}

func TestConnectionReadFrameAcrossPartialReads(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	var encoded bytes.Buffer
	require.NoError(t, lineFrame{Payload: []byte("ping")}.Write(&encoded))

	go func() {
		// Drip the bytes out one at a time to exercise the
		// read-more-and-retry loop.
		for _, b := range encoded.Bytes() {
			client.Write([]byte{b})
		}
	}()

	conn := NewConnection(server)
	frame, err := conn.ReadFrame(lineFrame{})
	require.NoError(t, err)
	assert.Equal(t, "ping", string(frame.(lineFrame).Payload))
}

func TestConnectionWriteFrameRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		conn := NewConnection(server)
		done <- conn.WriteFrame(lineFrame{Payload: []byte("pong")})
	}()

	conn := NewConnection(client)
	frame, err := conn.ReadFrame(lineFrame{})
	require.NoError(t, err)
	assert.Equal(t, "pong", string(frame.(lineFrame).Payload))
	require.NoError(t, <-done)
}

func TestListenerRunStopsOnContextCancel(t *testing.T) {
	ln, err := Listen("tcp", "127.0.0.1:0", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	echo := func(ctx context.Context, conn *Connection) error {
		frame, err := conn.ReadFrame(lineFrame{})
		if err != nil {
			return err
		}
		return conn.WriteFrame(frame)
	}

	runDone := make(chan error, 1)
	go func() { runDone <- ln.Run(ctx, echo) }()

	cancel()

	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Listener.Run did not return after context cancellation")
	}
}
