package pgwire

import "encoding/binary"

// Builder is an append-only byte buffer with typed writers for assembling
// a frontend message payload before it is framed and sent by a Writer.
// The final byte sequence is obtained with ToBytes.
type Builder struct {
	buf    []byte
	encode func(string) ([]byte, error)
	err    error
}

// NewBuilder returns an empty Builder, optionally sized to hint. Strings
// passed to PutCString are appended as their raw UTF-8 bytes.
func NewBuilder(sizeHint int) *Builder {
	return &Builder{buf: make([]byte, 0, sizeHint)}
}

// NewEncodedBuilder is like NewBuilder, but every PutCString argument is
// passed through encode first — the session's client_encoding, for a
// non-UTF8 session. A nil encode behaves exactly like NewBuilder.
func NewEncodedBuilder(sizeHint int, encode func(string) ([]byte, error)) *Builder {
	return &Builder{buf: make([]byte, 0, sizeHint), encode: encode}
}

// PutByte appends a single byte.
func (b *Builder) PutByte(v byte) *Builder {
	b.buf = append(b.buf, v)
	return b
}

// PutInt16 appends a big-endian int16.
func (b *Builder) PutInt16(v int16) *Builder {
	b.buf = binary.BigEndian.AppendUint16(b.buf, uint16(v))
	return b
}

// PutInt32 appends a big-endian int32.
func (b *Builder) PutInt32(v int32) *Builder {
	b.buf = binary.BigEndian.AppendUint32(b.buf, uint32(v))
	return b
}

// PutCString appends s followed by a null terminator. s must not itself
// contain a null byte. If this Builder was constructed with
// NewEncodedBuilder, s is passed through the encoder first; an encoding
// failure is recorded and returned by Err, and the offending call
// contributes no bytes.
func (b *Builder) PutCString(s string) *Builder {
	raw := []byte(s)
	if b.encode != nil {
		encoded, err := b.encode(s)
		if err != nil {
			if b.err == nil {
				b.err = err
			}
			return b
		}
		raw = encoded
	}
	b.buf = append(b.buf, raw...)
	b.buf = append(b.buf, 0)
	return b
}

// Err returns the first encoding error PutCString encountered, if any.
func (b *Builder) Err() error { return b.err }

// PutBytes appends raw bytes with no length prefix and no terminator.
func (b *Builder) PutBytes(v []byte) *Builder {
	b.buf = append(b.buf, v...)
	return b
}

// PutCountedBytes appends a field in DataRow/Bind-parameter shape: an
// int32 byte count followed by the bytes, or NullLength with nothing
// following if v is nil.
func (b *Builder) PutCountedBytes(v []byte) *Builder {
	if v == nil {
		return b.PutInt32(NullLength)
	}
	b.PutInt32(int32(len(v)))
	return b.PutBytes(v)
}

// Len reports the number of bytes accumulated so far.
func (b *Builder) Len() int { return len(b.buf) }

// ToBytes returns the accumulated payload.
func (b *Builder) ToBytes() []byte { return b.buf }
