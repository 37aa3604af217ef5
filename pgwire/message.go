package pgwire

import (
	"encoding/binary"
	"fmt"
)

// Message is a single backend reply: a tag plus its payload and a read
// cursor into that payload. One Message is reused across an entire
// session's lifetime and overwritten on each read to avoid allocation
// churn — callers must not retain a Message or its payload slice past the
// next Reader.ReadFrom call.
type Message struct {
	tag     byte
	payload []byte
	pos     int
}

// Tag returns the single-byte message type most recently read into m.
func (m *Message) Tag() byte { return m.tag }

// Len returns the number of unread bytes remaining in the payload.
func (m *Message) Len() int { return len(m.payload) - m.pos }

// Reset rewinds the read cursor to the start of the payload, for callers
// that need to re-scan (e.g. peeking the error-field-type byte).
func (m *Message) Reset() { m.pos = 0 }

// Byte reads and consumes a single byte.
func (m *Message) Byte() (byte, error) {
	if m.pos >= len(m.payload) {
		return 0, fmt.Errorf("pgwire: read byte past end of %c message", m.tag)
	}
	b := m.payload[m.pos]
	m.pos++
	return b, nil
}

// Int16 reads and consumes a big-endian int16.
func (m *Message) Int16() (int16, error) {
	if m.pos+2 > len(m.payload) {
		return 0, fmt.Errorf("pgwire: read int16 past end of %c message", m.tag)
	}
	v := int16(binary.BigEndian.Uint16(m.payload[m.pos:]))
	m.pos += 2
	return v, nil
}

// Int32 reads and consumes a big-endian int32.
func (m *Message) Int32() (int32, error) {
	if m.pos+4 > len(m.payload) {
		return 0, fmt.Errorf("pgwire: read int32 past end of %c message", m.tag)
	}
	v := int32(binary.BigEndian.Uint32(m.payload[m.pos:]))
	m.pos += 4
	return v, nil
}

// CString reads and consumes a null-terminated string.
func (m *Message) CString() (string, error) {
	for i := m.pos; i < len(m.payload); i++ {
		if m.payload[i] == 0 {
			s := string(m.payload[m.pos:i])
			m.pos = i + 1
			return s, nil
		}
	}
	return "", fmt.Errorf("pgwire: unterminated C-string in %c message", m.tag)
}

// Bytes reads and consumes exactly n raw bytes without copying — the
// returned slice aliases m's internal buffer and is invalidated by the
// next ReadFrom.
func (m *Message) Bytes(n int) ([]byte, error) {
	if n < 0 || m.pos+n > len(m.payload) {
		return nil, fmt.Errorf("pgwire: read %d bytes past end of %c message", n, m.tag)
	}
	b := m.payload[m.pos : m.pos+n]
	m.pos += n
	return b, nil
}

// Rest returns every remaining unread byte without consuming it.
func (m *Message) Rest() []byte { return m.payload[m.pos:] }
