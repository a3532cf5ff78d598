package tcp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
)

// Connection pairs a net.Conn with a growing read buffer, translated from
// the source's Connection (BufWriter<TcpStream> + BytesMut). ReadFrame
// loops: try to parse a frame out of what's buffered; if incomplete, pull
// more bytes off the wire and retry.
type Connection struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	buf    []byte
}

// NewConnection wraps conn with a 4KiB initial read buffer, matching the
// source's BytesMut::with_capacity(4 * 1024).
func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		buf:    make([]byte, 0, 4096),
	}
}

// RemoteAddr returns the underlying connection's remote address.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// ReadFrame reads and parses one frame using prototype as the decode
// template, growing the internal buffer until prototype.Read succeeds,
// reports ErrExit, or fails with a genuine parse error.
func (c *Connection) ReadFrame(prototype Frame) (Frame, error) {
	chunk := make([]byte, 4096)

	for {
		frame, err := c.tryParse(prototype)
		if err == nil {
			return frame, nil
		}
		if !errors.Is(err, ErrIncomplete) {
			return nil, err
		}

		n, rerr := c.reader.Read(chunk)
		if n > 0 {
			c.buf = append(c.buf, chunk[:n]...)
		}
		if rerr != nil {
			return nil, rerr
		}
	}
}

func (c *Connection) tryParse(prototype Frame) (Frame, error) {
	cur := NewCursor(c.buf)

	frame, err := prototype.Read(cur)
	if err != nil {
		switch {
		case errors.Is(err, ErrIncomplete):
			return nil, ErrIncomplete
		case errors.Is(err, ErrExit):
			return nil, ErrExit
		default:
			return nil, fmt.Errorf("tcp: frame parse error: %w", err)
		}
	}

	c.buf = c.buf[cur.Consumed():]
	return frame, nil
}

// WriteFrame encodes frame and writes it to the connection, flushing
// immediately (the source calls flush() after every write_all).
func (c *Connection) WriteFrame(frame Frame) error {
	var encoded bytes.Buffer
	if err := frame.Write(&encoded); err != nil {
		return fmt.Errorf("tcp: frame write error: %w", err)
	}

	if _, err := c.writer.Write(encoded.Bytes()); err != nil {
		return err
	}
	return c.writer.Flush()
}
