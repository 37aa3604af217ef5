package pgwire

import "encoding/binary"

// Cursor reads typed fields out of a message payload in order, the same
// sequential-decode shape a frontend Message exposes over RowDescription
// and DataRow payloads, mirrored here for the backend's own extended-query
// message parsing (Parse/Bind/Describe/Execute).
type Cursor struct {
	b []byte
}

// NewCursor wraps a message payload for sequential decoding.
func NewCursor(b []byte) *Cursor { return &Cursor{b: b} }

// CString reads a null-terminated string and advances the cursor.
func (c *Cursor) CString() string {
	s, rest := readCString(c.b)
	c.b = rest
	return s
}

// Int16 reads a big-endian int16 and advances the cursor.
func (c *Cursor) Int16() int16 {
	if len(c.b) < 2 {
		return 0
	}
	v := int16(binary.BigEndian.Uint16(c.b[:2]))
	c.b = c.b[2:]
	return v
}

// Int32 reads a big-endian int32 and advances the cursor.
func (c *Cursor) Int32() int32 {
	if len(c.b) < 4 {
		return 0
	}
	v := int32(binary.BigEndian.Uint32(c.b[:4]))
	c.b = c.b[4:]
	return v
}

// Byte reads a single byte and advances the cursor.
func (c *Cursor) Byte() byte {
	if len(c.b) == 0 {
		return 0
	}
	b := c.b[0]
	c.b = c.b[1:]
	return b
}

// Bytes reads n raw bytes and advances the cursor. A negative n (the NULL
// marker on the wire) returns nil.
func (c *Cursor) Bytes(n int32) []byte {
	if n < 0 {
		return nil
	}
	if int(n) > len(c.b) {
		n = int32(len(c.b))
	}
	b := c.b[:n]
	c.b = c.b[n:]
	return b
}

// Remaining reports whether unread bytes remain.
func (c *Cursor) Remaining() bool { return len(c.b) > 0 }
