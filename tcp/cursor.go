package tcp

import (
	"bytes"
	"io"
)

// Cursor is the read-only view over the connection's accumulated buffer
// that a Frame.Read call parses from, translated from the source's
// std::io::Cursor<&[u8]> passed into Frame::read. Unlike bytes.Reader, it
// tracks how many bytes were actually consumed so the connection can
// advance its buffer by exactly that much on a successful parse.
type Cursor struct {
	buf *bytes.Reader
	pos int
}

// NewCursor wraps buf for a single Frame.Read attempt.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: bytes.NewReader(buf)}
}

// Len returns the number of unread bytes remaining.
func (c *Cursor) Len() int { return c.buf.Len() }

// Peek returns up to n unread bytes without consuming them.
func (c *Cursor) Peek(n int) []byte {
	remaining := c.buf.Len()
	if n > remaining {
		n = remaining
	}
	start := int(c.buf.Size()) - remaining
	full := make([]byte, c.buf.Size())
	c.buf.ReadAt(full, 0) //nolint:errcheck // Size()-bounded read on a byte slice never errors
	return full[start : start+n]
}

// ReadByte consumes and returns the next byte.
func (c *Cursor) ReadByte() (byte, error) {
	b, err := c.buf.ReadByte()
	if err == nil {
		c.pos++
	}
	return b, err
}

// Read consumes up to len(p) bytes into p, advancing the cursor by
// however many bytes were actually read.
func (c *Cursor) Read(p []byte) (int, error) {
	n, err := c.buf.Read(p)
	c.pos += n
	return n, err
}

// Advance consumes and discards n bytes.
func (c *Cursor) Advance(n int) error {
	_, err := c.buf.Seek(int64(n), io.SeekCurrent)
	if err == nil {
		c.pos += n
	}
	return err
}

// Consumed reports how many bytes have been read off the cursor so far,
// which is how much the connection's buffer advances past this frame.
func (c *Cursor) Consumed() int { return c.pos }
